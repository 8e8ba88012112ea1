package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/WullieT22/invoice-ocr-mvp/internal/db"
	"github.com/WullieT22/invoice-ocr-mvp/internal/extract"
	"github.com/WullieT22/invoice-ocr-mvp/internal/llm"
	"github.com/WullieT22/invoice-ocr-mvp/internal/match"
	"github.com/WullieT22/invoice-ocr-mvp/internal/merge"
	"github.com/WullieT22/invoice-ocr-mvp/internal/models"
	"github.com/WullieT22/invoice-ocr-mvp/internal/storage"
)

const (
	MaxUploadSize   = 10 * 1024 * 1024 // 10MB
	Version         = "1.0.0"
	rawPreviewChars = 2000
)

// Handler handles HTTP requests for invoice reconciliation
type Handler struct {
	config  *models.Config
	poStore match.POStore
}

// NewHandler creates a new API handler
func NewHandler(config *models.Config, poStore match.POStore) *Handler {
	return &Handler{
		config:  config,
		poStore: poStore,
	}
}

// SetupRoutes configures the HTTP routes
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	// Main endpoint
	router.HandleFunc("/api/process-invoice", h.ProcessInvoice).Methods("POST")

	// Reconciliation history
	router.HandleFunc("/api/reconciliations", h.GetReconciliations).Methods("GET")
	router.HandleFunc("/api/reconciliation/{id}", h.GetReconciliation).Methods("GET")
	router.HandleFunc("/api/reconciliation/{id}", h.DeleteReconciliation).Methods("DELETE")

	// Statistics
	router.HandleFunc("/api/stats", h.GetStats).Methods("GET")

	// Health check
	router.HandleFunc("/health", h.Health).Methods("GET")

	return router
}

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status    string        `json:"status"`
	Version   string        `json:"version"`
	Timestamp string        `json:"timestamp"`
	Uptime    string        `json:"uptime"`
	Memory    MemoryStats   `json:"memory"`
	Database  ServiceStatus `json:"database"`
	Storage   ServiceStatus `json:"storage"`
	LLM       ServiceStatus `json:"llm"`
}

// MemoryStats represents memory usage statistics
type MemoryStats struct {
	Allocated string `json:"allocated"`
	Total     string `json:"total"`
	System    string `json:"system"`
}

// ServiceStatus represents the status of a service dependency
type ServiceStatus struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

var startTime = time.Now()

// Health endpoint - enhanced for monitoring
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	// Memory statistics
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "healthy",
		Version:   Version,
		Timestamp: time.Now().Format(time.RFC3339),
		Uptime:    time.Since(startTime).String(),
		Memory: MemoryStats{
			Allocated: fmt.Sprintf("%.2f MB", float64(m.Alloc)/1024/1024),
			Total:     fmt.Sprintf("%.2f MB", float64(m.TotalAlloc)/1024/1024),
			System:    fmt.Sprintf("%.2f MB", float64(m.Sys)/1024/1024),
		},
		Database: h.checkDatabase(),
		Storage:  h.checkStorage(),
		LLM:      h.checkLLM(),
	}

	// The service stays healthy without database or storage; only the
	// extraction pipeline itself is critical and that is always in-process.
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// checkDatabase verifies PostgreSQL connection
func (h *Handler) checkDatabase() ServiceStatus {
	if db.Pool == nil {
		return ServiceStatus{
			Available: false,
			Error:     "database pool not initialized",
		}
	}

	return ServiceStatus{
		Available: true,
		Version:   "PostgreSQL",
	}
}

// checkStorage verifies MinIO connection
func (h *Handler) checkStorage() ServiceStatus {
	if storage.Client == nil {
		return ServiceStatus{
			Available: false,
			Error:     "storage client not initialized",
		}
	}

	return ServiceStatus{
		Available: true,
		Version:   "MinIO S3",
	}
}

// checkLLM reports whether a fallback extraction provider is configured
func (h *Handler) checkLLM() ServiceStatus {
	if h.config.LLM.DefaultProvider == "" {
		return ServiceStatus{
			Available: false,
			Error:     "no provider configured",
		}
	}

	return ServiceStatus{
		Available: true,
		Version:   h.config.LLM.DefaultProvider,
	}
}

// ProcessRequest is the JSON request body for text submissions
type ProcessRequest struct {
	Text     string `json:"text"`
	Provider string `json:"provider,omitempty"`
}

// ProcessResponse is the result of one pipeline run
type ProcessResponse struct {
	Success        bool                  `json:"success"`
	Record         *models.InvoiceRecord `json:"record,omitempty"`
	Verdict        *models.MatchVerdict  `json:"verdict,omitempty"`
	RawTextPreview string                `json:"raw_text_preview,omitempty"`
	ArchiveURL     string                `json:"archive_url,omitempty"`
	SavedID        string                `json:"saved_id,omitempty"`
	SavedToDB      bool                  `json:"saved_to_db"`
	LLMUsed        bool                  `json:"llm_used"`
	TotalDuration  float64               `json:"totalDuration"`
	Error          string                `json:"error,omitempty"`
}

// ProcessInvoice runs the full pipeline: extract, merge, match, persist.
// It accepts either a multipart "file" upload (plain text) or a JSON body
// with a "text" field.
func (h *Handler) ProcessInvoice(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx := r.Context()
	startTime := time.Now()

	text, providerName, err := h.readText(w, r)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	if text == "" {
		h.sendError(w, http.StatusBadRequest, "No invoice text provided")
		return
	}
	if providerName == "" {
		providerName = h.config.LLM.DefaultProvider
	}

	// Step 1: pattern-based extraction, always runs
	record := extract.Extract(text)

	// Step 2: provider extraction when configured; its fields win on merge
	llmUsed := false
	if providerName != "" {
		provider, err := h.createProvider(providerName)
		if err != nil {
			h.sendError(w, http.StatusBadRequest, err.Error())
			return
		}
		extractor := llm.NewExtractor(provider)
		llmRecord, err := extractor.Extract(ctx, text)
		if err != nil {
			log.Printf("Warning: provider extraction failed: %v", err)
		} else if llmRecord != nil {
			record = merge.Records(llmRecord, record)
			llmUsed = true
		}
	}

	// Step 3: reconcile against the purchase order store
	verdict := match.Invoice(ctx, record, h.poStore)

	// Step 4: archive raw text (if storage configured)
	var archiveURL string
	if storage.Client != nil {
		filename := fmt.Sprintf("%s_%s.txt",
			time.Now().Format("20060102_150405"),
			uuid.New().String()[:8],
		)
		archiveURL, err = storage.UploadRawText(ctx, filename, text)
		if err != nil {
			// Log but don't fail - archival is optional
			log.Printf("Warning: failed to archive raw text: %v", err)
			archiveURL = ""
		}
	}

	// Step 5: persist (if database configured)
	var savedID string
	savedToDB := false
	if db.Pool != nil {
		rec := buildReconciliation(record, verdict, text, archiveURL)
		id, err := db.SaveReconciliation(ctx, rec)
		if err != nil {
			log.Printf("Warning: failed to save reconciliation: %v", err)
		} else {
			savedID = id.String()
			savedToDB = true
		}
	}

	json.NewEncoder(w).Encode(ProcessResponse{
		Success:        true,
		Record:         record,
		Verdict:        &verdict,
		RawTextPreview: truncate(text, rawPreviewChars),
		ArchiveURL:     archiveURL,
		SavedID:        savedID,
		SavedToDB:      savedToDB,
		LLMUsed:        llmUsed,
		TotalDuration:  time.Since(startTime).Seconds(),
	})
}

// readText pulls the invoice text from a multipart upload or a JSON body.
func (h *Handler) readText(w http.ResponseWriter, r *http.Request) (string, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)

	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
			return "", "", fmt.Errorf("file too large or invalid form data")
		}

		file, _, err := r.FormFile("file")
		if err != nil {
			return "", "", fmt.Errorf("no file provided (use 'file' field)")
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return "", "", fmt.Errorf("failed to read file")
		}

		return string(data), r.FormValue("provider"), nil
	}

	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", "", fmt.Errorf("invalid request body")
	}

	return req.Text, req.Provider, nil
}

// createProvider creates the configured extraction provider
func (h *Handler) createProvider(providerName string) (llm.Provider, error) {
	switch providerName {
	case "openai":
		return llm.NewOpenAIProvider(
			h.config.LLM.OpenAI.APIKey,
			h.config.LLM.OpenAI.BaseURL,
			h.config.LLM.OpenAI.Model,
		), nil

	case "gemini":
		return llm.NewGeminiProvider(
			h.config.LLM.Gemini.APIKey,
			h.config.LLM.Gemini.Model,
		), nil

	case "ollama":
		return llm.NewOllamaProvider(
			h.config.LLM.Ollama.BaseURL,
			h.config.LLM.Ollama.Model,
		), nil

	default:
		return nil, fmt.Errorf("unsupported provider: %s", providerName)
	}
}

// GetReconciliations returns recent reconciliation results
func (h *Handler) GetReconciliations(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx := r.Context()

	if db.Pool == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	results, err := db.GetReconciliations(ctx, 100)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get reconciliations: %v", err))
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":         true,
		"reconciliations": results,
		"count":           len(results),
	})
}

// GetReconciliation returns a single reconciliation
func (h *Handler) GetReconciliation(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx := r.Context()

	if db.Pool == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid reconciliation id")
		return
	}

	result, err := db.GetReconciliationByID(ctx, id)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to get reconciliation")
		return
	}
	if result == nil {
		h.sendError(w, http.StatusNotFound, "reconciliation not found")
		return
	}

	// Generate presigned URL for the archived raw text
	if result.ArchiveURL != "" && storage.Client != nil {
		if presignedURL, err := storage.GetPresignedURL(ctx, result.ArchiveURL); err == nil {
			result.ArchiveURL = presignedURL
		}
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":        true,
		"reconciliation": result,
	})
}

// DeleteReconciliation removes a reconciliation and its archived text
func (h *Handler) DeleteReconciliation(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx := r.Context()

	if db.Pool == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	vars := mux.Vars(r)
	id, err := uuid.Parse(vars["id"])
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid reconciliation id")
		return
	}

	// Optionally: delete archived text from MinIO
	if storage.Client != nil {
		result, err := db.GetReconciliationByID(ctx, id)
		if err == nil && result != nil && result.ArchiveURL != "" {
			// Delete archive (ignore errors)
			_ = storage.DeleteArchive(ctx, result.ArchiveURL)
		}
	}

	deleted, err := db.DeleteReconciliation(ctx, id)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to delete reconciliation")
		return
	}
	if !deleted {
		h.sendError(w, http.StatusNotFound, "reconciliation not found")
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": "reconciliation deleted",
	})
}

// GetStats returns monthly statistics
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx := r.Context()

	if db.Pool == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	stats, err := db.GetMonthlyStats(ctx)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"stats":   stats,
	})
}

// buildReconciliation flattens a record and verdict into the persisted row
func buildReconciliation(record *models.InvoiceRecord, verdict models.MatchVerdict, text, archiveURL string) *db.Reconciliation {
	rec := &db.Reconciliation{
		InvoiceNumber:        safeString(record.InvoiceNumber),
		PONumber:             safeString(record.PONumber),
		VendorName:           safeString(record.VendorName),
		Subtotal:             decimalToFloat64(record.Subtotal),
		Tax:                  decimalToFloat64(record.Tax),
		Total:                decimalToFloat64(record.Total),
		Currency:             string(record.Currency),
		ExtractionConfidence: record.ExtractionConfidence,
		MatchStatus:          string(verdict.Status),
		MatchConfidence:      verdict.Confidence,
		MatchMessage:         verdict.Message,
		RawTextPreview:       truncate(text, rawPreviewChars),
		ArchiveURL:           archiveURL,
	}

	if record.InvoiceDate != nil {
		t := record.InvoiceDate.Time
		rec.InvoiceDate = &t
	}
	if record.DueDate != nil {
		t := record.DueDate.Time
		rec.DueDate = &t
	}
	if len(record.LineItems) > 0 {
		if itemsJSON, err := json.Marshal(record.LineItems); err == nil {
			rec.LineItemsJSON = string(itemsJSON)
		}
	}

	return rec
}

// sendError sends an error response
func (h *Handler) sendError(w http.ResponseWriter, statusCode int, message string) {
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

func safeString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// decimalToFloat64 converts an optional decimal to float64, nil as zero
func decimalToFloat64(d *decimal.Decimal) float64 {
	if d == nil {
		return 0
	}
	f, _ := d.Float64()
	return f
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
