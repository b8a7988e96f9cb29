package api

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/classhub/trustgate/internal/api/presenter"
	"github.com/classhub/trustgate/internal/core"
	"github.com/classhub/trustgate/internal/service"
)

type ExplainPayload struct {
	Token  string `json:"token"`
	Method string `json:"method"`
	Path   string `json:"path"`
}

// handleAdminAudit processes requests to retrieve audit log entries.
func (s *Server) handleAdminAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	reader, ok := s.auditor.(core.AuditReader)
	if !ok {
		presenter.Error(w, r, "audit log is not readable", http.StatusNotImplemented)
		return
	}

	// filters
	q := r.URL.Query()
	limitStr := q.Get("limit")

	filterCorrelationID := q.Get("correlation_id")
	filterSubject := q.Get("subject")
	filterUsername := q.Get("username")
	filterAction := q.Get("action")
	filterFingerprint := q.Get("fingerprint")

	limit := 50
	if limitStr != "" {
		v, err := strconv.Atoi(limitStr)
		if err != nil || v <= 0 {
			logger.Warn().Str("limit", limitStr).Msg("invalid limit parameter")
			presenter.Error(w, r, "invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = v
	}

	var entries []core.AuditEntry
	var err error

	if filterCorrelationID != "" || filterSubject != "" || filterUsername != "" || filterAction != "" || filterFingerprint != "" {
		entries, err = reader.Find(func(entry core.AuditEntry) bool {
			if filterCorrelationID != "" && entry.ID != filterCorrelationID {
				return false
			}
			if filterSubject != "" && entry.Subject != filterSubject {
				return false
			}
			if filterUsername != "" && entry.Username != filterUsername {
				return false
			}
			if filterAction != "" && entry.Action != filterAction {
				return false
			}
			if filterFingerprint != "" && entry.TokenFingerprint != filterFingerprint {
				return false
			}
			return true
		}, limit)
	} else {
		entries, err = reader.GetRecent(limit)
	}

	if err != nil {
		logger.Error().Err(err).Msg("failed to retrieve audit logs")
		presenter.Error(w, r, "failed to retrieve audit logs", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []core.AuditEntry{}
	}

	presenter.OK(w, r, entries)
}

// handleExplain reports how the route rules decide a request for a given token.
func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	var payload ExplainPayload
	if err := DecodePayload(r, &payload, false); err != nil || payload.Path == "" {
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}

	presenter.OK(w, r, s.access.Explain(r.Context(), service.ExplainRequest{
		Token:  payload.Token,
		Method: payload.Method,
		Path:   payload.Path,
	}))
}
