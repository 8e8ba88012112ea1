package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/WullieT22/invoice-ocr-mvp/api"
	"github.com/WullieT22/invoice-ocr-mvp/internal/auth"
	"github.com/WullieT22/invoice-ocr-mvp/internal/db"
	"github.com/WullieT22/invoice-ocr-mvp/internal/match"
	"github.com/WullieT22/invoice-ocr-mvp/internal/models"
	"github.com/WullieT22/invoice-ocr-mvp/internal/storage"
)

func main() {
	// Initialize JWT
	if err := auth.Init(); err != nil {
		log.Fatalf("Failed to initialize auth: %v", err)
	}
	log.Println("JWT authentication initialized")

	// Initialize database connection pool
	if err := db.Init(); err != nil {
		log.Printf("Warning: Database not available: %v", err)
		log.Println("Running in process-only mode (no persistence)")
	} else {
		defer db.Close()
	}

	// Initialize MinIO storage
	if err := storage.Init(); err != nil {
		log.Printf("Warning: MinIO storage not available: %v", err)
		log.Println("Raw invoice text will not be archived")
	} else {
		log.Println("MinIO storage initialized")
	}

	// Load configuration
	config, err := loadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Purchase orders come from the database when available; otherwise the
	// built-in seed set keeps the matcher usable for local development.
	var poStore match.POStore
	if db.Pool != nil {
		poStore = db.POStore{}
	} else {
		poStore = match.NewSeededStore()
		log.Println("Using built-in purchase order seed data")
	}

	// Create API handler
	handler := api.NewHandler(config, poStore)
	router := handler.SetupRoutes()

	// Add login endpoint
	router.HandleFunc("/api/login", auth.LoginHandler).Methods("POST")

	// Wrap router with JWT middleware (skips /health and /api/login)
	protectedRouter := auth.JWTMiddleware(router)

	// Start server
	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	log.Printf("Starting Invoice Reconciliation Service v%s on %s", api.Version, addr)
	log.Printf("Default LLM Provider: %s", orNone(config.LLM.DefaultProvider))
	log.Printf("Database: %v", db.Pool != nil)
	log.Printf("Storage: %v", storage.Client != nil)
	log.Printf("Endpoints:")
	log.Printf("  POST http://%s/api/login                 - Authenticate", addr)
	log.Printf("  POST http://%s/api/process-invoice       - Process invoice text (requires JWT)", addr)
	log.Printf("  GET  http://%s/api/reconciliations       - List reconciliations (requires JWT)", addr)
	log.Printf("  GET  http://%s/api/reconciliation/{id}   - Get reconciliation (requires JWT)", addr)
	log.Printf("  DELETE http://%s/api/reconciliation/{id} - Delete reconciliation (requires JWT)", addr)
	log.Printf("  GET  http://%s/api/stats                 - Get monthly stats (requires JWT)", addr)
	log.Printf("  GET  http://%s/health                    - Health check", addr)

	if err := http.ListenAndServe(addr, protectedRouter); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func loadConfig(path string) (*models.Config, error) {
	// Read config file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	var config models.Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables if present
	if port := os.Getenv("PORT"); port != "" {
		fmt.Sscanf(port, "%d", &config.Port)
	}
	if host := os.Getenv("HOST"); host != "" {
		config.Host = host
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.LLM.OpenAI.APIKey = apiKey
	}
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.LLM.Gemini.APIKey = apiKey
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.Ollama.BaseURL = baseURL
	}
	if provider := os.Getenv("LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = provider
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.LLM.OpenAI.BaseURL = baseURL
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		config.LLM.OpenAI.Model = model
	}
	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		config.LLM.Gemini.Model = model
	}

	return &config, nil
}

func orNone(s string) string {
	if s == "" {
		return "none (pattern extraction only)"
	}
	return s
}
