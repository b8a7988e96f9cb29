package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
)

const maxPayloadBytes = 64 << 10

// DecodePayload strictly decodes a JSON request body into dest.
func DecodePayload(r *http.Request, dest any, allowEmpty bool) error {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			return errors.New("unsupported content type")
		}
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxPayloadBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		if !errors.Is(err, io.EOF) || !allowEmpty {
			return err
		}
	}
	// ensure there's no extra data
	if dec.More() {
		return errors.New("extra data in request body")
	}
	return nil
}
