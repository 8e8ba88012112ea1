package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WullieT22/invoice-ocr-mvp/internal/match"
	"github.com/WullieT22/invoice-ocr-mvp/internal/models"
)

const sampleInvoice = `Acme Supplies
Invoice Number: INV-2024-001
PO Number: PO-1001
Date: 2024-03-15
Subtotal: 1041.67
Tax: 208.33
Total: $1,250.00
`

func newTestHandler() *Handler {
	config := &models.Config{Port: 8080, Host: "127.0.0.1"}
	return NewHandler(config, match.NewSeededStore())
}

func TestProcessInvoiceJSON(t *testing.T) {
	handler := newTestHandler()
	router := handler.SetupRoutes()

	body, err := json.Marshal(ProcessRequest{Text: sampleInvoice})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/process-invoice", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ProcessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.True(t, resp.Success)
	assert.False(t, resp.SavedToDB)
	assert.False(t, resp.LLMUsed)

	require.NotNil(t, resp.Record)
	require.NotNil(t, resp.Record.InvoiceNumber)
	assert.Equal(t, "INV-2024-001", *resp.Record.InvoiceNumber)
	require.NotNil(t, resp.Record.PONumber)
	assert.Equal(t, "PO-1001", *resp.Record.PONumber)
	assert.InDelta(t, 1.0, resp.Record.ExtractionConfidence, 1e-9)

	require.NotNil(t, resp.Verdict)
	assert.Equal(t, models.StatusMatched, resp.Verdict.Status)
	assert.InDelta(t, 1.0, resp.Verdict.Confidence, 1e-9)

	assert.Equal(t, sampleInvoice, resp.RawTextPreview)
}

func TestProcessInvoiceMultipart(t *testing.T) {
	handler := newTestHandler()
	router := handler.SetupRoutes()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "invoice.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte(sampleInvoice))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/process-invoice", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ProcessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Verdict)
	assert.Equal(t, models.StatusMatched, resp.Verdict.Status)
}

func TestProcessInvoiceEmptyText(t *testing.T) {
	handler := newTestHandler()
	router := handler.SetupRoutes()

	req := httptest.NewRequest(http.MethodPost, "/api/process-invoice", strings.NewReader(`{"text":""}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessInvoiceInvalidBody(t *testing.T) {
	handler := newTestHandler()
	router := handler.SetupRoutes()

	req := httptest.NewRequest(http.MethodPost, "/api/process-invoice", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessInvoiceUnknownPO(t *testing.T) {
	handler := newTestHandler()
	router := handler.SetupRoutes()

	text := strings.Replace(sampleInvoice, "PO-1001", "PO-9999", 1)
	body, err := json.Marshal(ProcessRequest{Text: text})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/process-invoice", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ProcessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Verdict)
	assert.Equal(t, models.StatusPending, resp.Verdict.Status)
	assert.InDelta(t, 0.3, resp.Verdict.Confidence, 1e-9)
}

func TestHealthWithoutDependencies(t *testing.T) {
	handler := newTestHandler()
	router := handler.SetupRoutes()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.False(t, resp.Database.Available)
	assert.False(t, resp.Storage.Available)
	assert.False(t, resp.LLM.Available)
}

func TestHistoryEndpointsWithoutDatabase(t *testing.T) {
	handler := newTestHandler()
	router := handler.SetupRoutes()

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/reconciliations"},
		{http.MethodGet, "/api/reconciliation/4b2f1f0a-0000-0000-0000-000000000000"},
		{http.MethodDelete, "/api/reconciliation/4b2f1f0a-0000-0000-0000-000000000000"},
		{http.MethodGet, "/api/stats"},
	} {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, tc.path)
	}
}
