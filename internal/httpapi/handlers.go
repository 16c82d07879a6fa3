package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marte113/Player-On-Caption/internal/transcript"
	"github.com/marte113/Player-On-Caption/internal/translator"
	"github.com/marte113/Player-On-Caption/pkg/log"
)

const maxRequestBody = 4 << 20

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleTranslate answers with a Result envelope. Provider failures are part
// of the envelope, so the status is 200 unless the request itself is bad.
func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translator.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Provider = strings.ToLower(strings.TrimSpace(req.Provider))

	key := req.Provider + "\x00" + req.Text
	v, _, shared := s.inflight.Do(key, func() (any, error) {
		// detached so one caller going away does not fail the others
		return s.translator.Do(context.WithoutCancel(r.Context()), req), nil
	})
	result := v.(translator.Result)
	if shared {
		log.Debug("translate request shared an in-flight call")
	}
	if err := result.Err(); err != nil {
		log.Warn("translate via %s failed: %v", req.Provider, err)
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListTranslations(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "translation cache is disabled")
		return
	}
	items, err := s.store.ListTranslations(r.Context())
	if err != nil {
		log.Error("list translations: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list translations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type translationResponse struct {
	Title          string            `json:"title"`
	Provider       string            `json:"provider"`
	TargetLanguage string            `json:"target_language"`
	Pairs          []transcript.Pair `json:"pairs"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

func (s *Server) handleGetTranslation(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "translation cache is disabled")
		return
	}
	title := chi.URLParam(r, "title")
	entry, ok, err := s.store.GetTranslation(r.Context(), title)
	switch {
	case err != nil:
		log.Error("get translation %q: %v", title, err)
		writeError(w, http.StatusInternalServerError, "failed to read translation")
		return
	case !ok || entry.Map == nil:
		writeError(w, http.StatusNotFound, "translation not found")
		return
	}
	writeJSON(w, http.StatusOK, translationResponse{
		Title:          entry.Title,
		Provider:       entry.Provider,
		TargetLanguage: entry.TargetLanguage.String(),
		Pairs:          entry.Map.Pairs(),
		UpdatedAt:      entry.UpdatedAt,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
