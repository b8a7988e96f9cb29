package presenter

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/classhub/trustgate/internal/core"
)

const MessageSuccess = "success"

// Response is the envelope of every API response. Code mirrors the HTTP status.
type Response struct {
	Code          int    `json:"code"`
	Message       string `json:"message"`
	Data          any    `json:"data"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

func JSON(w http.ResponseWriter, r *http.Request, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to write json response")
	}
}

// OK writes a success envelope carrying data.
func OK(w http.ResponseWriter, r *http.Request, data any) {
	JSON(w, r, Response{
		Code:          http.StatusOK,
		Message:       MessageSuccess,
		Data:          data,
		CorrelationID: core.CorrelationID(r.Context()),
	}, http.StatusOK)
}

// Error writes an error envelope with a caller-safe message.
func Error(w http.ResponseWriter, r *http.Request, msg string, status int) {
	JSON(w, r, Response{
		Code:          status,
		Message:       msg,
		CorrelationID: core.CorrelationID(r.Context()),
	}, status)
}

// Err maps err to its status and public message. Internal detail is never written.
func Err(w http.ResponseWriter, r *http.Request, err error) {
	if status := core.StatusCode(err); status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="trustgate"`)
	}
	Error(w, r, core.PublicMessage(err), core.StatusCode(err))
}
