// Package api exposes the orchestrator's event and query surface over HTTP.
// Browser-side collaborators post tab events here and poll for results.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/policyscope/policyscope/internal/llm"
	"github.com/policyscope/policyscope/internal/model"
	"github.com/policyscope/policyscope/internal/orchestrator"
)

// Service is the orchestrator surface the API depends on
type Service interface {
	NavigationComplete(tabID int, rawURL string)
	TabActivated(tabID int)
	TabRemoved(tabID int)
	ReportLinks(tabID int, rawURL string, links model.CandidateLinks)
	ManualAnalyze(tabID int, rawURL string) error
	GetAnalysis(tabID int) (*model.Analysis, bool)
	BadgeFor(tabID int) orchestrator.Badge
}

// Handler serves the HTTP API
type Handler struct {
	svc Service
}

// NavigationEvent reports a completed top-level navigation in a tab
type NavigationEvent struct {
	TabID int    `json:"tabId"`
	URL   string `json:"url"`
}

// TabEvent identifies a tab for activation and removal events
type TabEvent struct {
	TabID int `json:"tabId"`
}

// LinksEvent carries policy links discovered on a page
type LinksEvent struct {
	TabID int                  `json:"tabId"`
	URL   string               `json:"url"`
	Links model.CandidateLinks `json:"links"`
}

// AnalyzeRequest triggers a manual re-analysis of a tab's page
type AnalyzeRequest struct {
	URL string `json:"url"`
}

// AnalyzeResponse acknowledges a manual analysis request
type AnalyzeResponse struct {
	Started       bool   `json:"started"`
	MissingAPIKey bool   `json:"missingApiKey,omitempty"`
	Message       string `json:"message,omitempty"`
}

// BadgeResponse reports the current badge state for a tab
type BadgeResponse struct {
	Badge string `json:"badge"`
}

func (h *Handler) handleNavigation(w http.ResponseWriter, r *http.Request) {
	var ev NavigationEvent
	if err := decodeJSONBody(r, &ev); err != nil {
		writeError(w, http.StatusBadRequest, errCodeInvalidRequest, err.Error())
		return
	}
	h.svc.NavigationComplete(ev.TabID, ev.URL)
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleActivated(w http.ResponseWriter, r *http.Request) {
	var ev TabEvent
	if err := decodeJSONBody(r, &ev); err != nil {
		writeError(w, http.StatusBadRequest, errCodeInvalidRequest, err.Error())
		return
	}
	h.svc.TabActivated(ev.TabID)
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleRemoved(w http.ResponseWriter, r *http.Request) {
	var ev TabEvent
	if err := decodeJSONBody(r, &ev); err != nil {
		writeError(w, http.StatusBadRequest, errCodeInvalidRequest, err.Error())
		return
	}
	h.svc.TabRemoved(ev.TabID)
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleLinks(w http.ResponseWriter, r *http.Request) {
	var ev LinksEvent
	if err := decodeJSONBody(r, &ev); err != nil {
		writeError(w, http.StatusBadRequest, errCodeInvalidRequest, err.Error())
		return
	}
	h.svc.ReportLinks(ev.TabID, ev.URL, ev.Links)
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	tabID, ok := tabIDParam(w, r)
	if !ok {
		return
	}
	var req AnalyzeRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, errCodeInvalidRequest, err.Error())
		return
	}

	resp := AnalyzeResponse{Started: true}
	if err := h.svc.ManualAnalyze(tabID, req.URL); err != nil {
		if !errors.Is(err, llm.ErrMissingCredential) {
			writeError(w, http.StatusInternalServerError, errCodeInternal, err.Error())
			return
		}
		// the heuristic cycle still runs; the client just gets told why the
		// result will be degraded
		resp.MissingAPIKey = true
		resp.Message = "Please set your OpenAI API key in the extension settings."
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (h *Handler) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	tabID, ok := tabIDParam(w, r)
	if !ok {
		return
	}
	analysis, ok := h.svc.GetAnalysis(tabID)
	if !ok {
		writeError(w, http.StatusNotFound, errCodeNotFound, "no analysis for tab")
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (h *Handler) handleGetBadge(w http.ResponseWriter, r *http.Request) {
	tabID, ok := tabIDParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, BadgeResponse{Badge: h.svc.BadgeFor(tabID).String()})
}

func (h *Handler) handleLivez(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func tabIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	tabID, err := strconv.Atoi(chi.URLParam(r, "tabID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errCodeInvalidRequest, "tab id must be an integer")
		return 0, false
	}
	return tabID, true
}
