package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/onnwee/chatpulse/analysis"
	"github.com/onnwee/chatpulse/db"
	"github.com/onnwee/chatpulse/keywords"
	"github.com/onnwee/chatpulse/report"
	"github.com/onnwee/chatpulse/telemetry"
	"github.com/onnwee/chatpulse/window"
)

type messageJSON struct {
	Timestamp time.Time `json:"timestamp"`
	Author    string    `json:"author"`
	Message   string    `json:"message"`
}

type keywordTableJSON struct {
	SessionID string       `json:"session_id"`
	Interval  string       `json:"interval"`
	Records   int          `json:"records"`
	Keywords  []string     `json:"keywords"`
	Rows      []report.Row `json:"rows"`
}

// HandleSessionsList lists stored capture sessions, newest first.
func (h *Handlers) HandleSessionsList(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.ListSessions(r.Context(), parseIntQuery(r, "limit", 50))
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

// HandleSessionGet returns one session.
func (h *Handlers) HandleSessionGet(w http.ResponseWriter, r *http.Request) {
	s, err := h.store.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// HandleSessionMessages returns a session's messages in capture order.
func (h *Handlers) HandleSessionMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.store.GetSession(r.Context(), id); err != nil {
		h.storeError(w, r, err)
		return
	}
	recs, err := h.store.ListChatMessages(r.Context(), id)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	out := make([]messageJSON, 0, len(recs))
	for _, rec := range recs {
		out = append(out, messageJSON{Timestamp: rec.Timestamp, Author: rec.Author, Message: rec.Message})
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "messages": out})
}

// HandleSessionKeywords runs the keyword pipeline over a stored session.
// Query: interval (default TIME_INTERVAL), keyword (repeatable; default the
// configured keywords file).
func (h *Handlers) HandleSessionKeywords(w http.ResponseWriter, r *http.Request) {
	id, iv, res, ok := h.sessionTable(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, keywordTableJSON{
		SessionID: id,
		Interval:  iv.String(),
		Records:   res.Records,
		Keywords:  res.Table.Keywords,
		Rows:      res.Table.Rows,
	})
}

// HandleSessionKeywordsCSV is HandleSessionKeywords as a CSV download.
func (h *Handlers) HandleSessionKeywordsCSV(w http.ResponseWriter, r *http.Request) {
	id, _, res, ok := h.sessionTable(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`-keywords.csv"`)
	pattern := r.URL.Query().Get("format")
	if pattern == "" {
		pattern = h.cfg.TimestampFormat
	}
	if err := report.WriteCSV(w, res.Table, pattern); err != nil {
		telemetry.LoggerWithCorr(r.Context()).Warn("write csv response", "err", err)
	}
}

func (h *Handlers) sessionTable(w http.ResponseWriter, r *http.Request) (string, window.Interval, analysis.Result, bool) {
	id := chi.URLParam(r, "id")
	raw := r.URL.Query().Get("interval")
	if raw == "" {
		raw = h.cfg.TimeInterval
	}
	iv, err := window.ParseInterval(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", window.Interval{}, analysis.Result{}, false
	}
	kws, err := h.keywords(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", window.Interval{}, analysis.Result{}, false
	}
	if _, err := h.store.GetSession(r.Context(), id); err != nil {
		h.storeError(w, r, err)
		return "", window.Interval{}, analysis.Result{}, false
	}
	recs, err := h.store.ListChatMessages(r.Context(), id)
	if err != nil {
		h.storeError(w, r, err)
		return "", window.Interval{}, analysis.Result{}, false
	}
	loc, err := h.cfg.Location()
	if err != nil {
		h.internalError(w, r, err)
		return "", window.Interval{}, analysis.Result{}, false
	}
	res, err := analysis.RunRecords(r.Context(), recs, analysis.Options{
		Interval: iv,
		Keywords: kws,
		Location: loc,
		Logger:   telemetry.LoggerWithCorr(r.Context()),
	})
	if err != nil {
		h.internalError(w, r, err)
		return "", window.Interval{}, analysis.Result{}, false
	}
	return id, iv, res, true
}

// keywords returns the keyword query params verbatim, or the configured
// keyword file when none are given. Empty values are skipped the way
// keywords.Read skips empty lines.
func (h *Handlers) keywords(r *http.Request) ([]string, error) {
	if kws, ok := r.URL.Query()["keyword"]; ok {
		out := make([]string, 0, len(kws))
		for _, k := range kws {
			if k != "" {
				out = append(out, k)
			}
		}
		return out, nil
	}
	return keywords.Load(h.fs, h.cfg.KeywordsFile)
}

func (h *Handlers) storeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, db.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	h.internalError(w, r, err)
}

func (h *Handlers) internalError(w http.ResponseWriter, r *http.Request, err error) {
	telemetry.LoggerWithCorr(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
