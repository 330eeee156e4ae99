package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// Scanner defines the interface for triggering a pipeline run.
type Scanner interface {
	RunScan(ctx context.Context) error
}

// ScanHandler handles manual scan trigger requests.
type ScanHandler struct {
	scanner Scanner
}

// NewScanHandler creates a new ScanHandler.
func NewScanHandler(s Scanner) *ScanHandler {
	return &ScanHandler{scanner: s}
}

// ScanOutput is the response body for the scan endpoint.
type ScanOutput struct {
	Body struct {
		Status string `json:"status" example:"scan completed" doc:"Scan status"`
	}
}

// Scan triggers a full pipeline run.
func (h *ScanHandler) Scan(ctx context.Context, _ *struct{}) (*ScanOutput, error) {
	if err := h.scanner.RunScan(ctx); err != nil {
		return nil, huma.Error500InternalServerError("scan failed: " + err.Error())
	}

	resp := &ScanOutput{}
	resp.Body.Status = "scan completed"
	return resp, nil
}

// RegisterTriggerRoutes registers trigger endpoints with the Huma API.
func RegisterTriggerRoutes(api huma.API, h *ScanHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "trigger-scan",
		Method:      http.MethodPost,
		Path:        "/api/v1/scan",
		Summary:     "Trigger manual scan",
		Description: "Runs the full pipeline: scrape marketplace listings, classify bundles, " +
			"price components, evaluate, and alert on buy candidates.",
		Tags:   []string{"scan"},
		Errors: []int{http.StatusInternalServerError},
	}, h.Scan)
}
