package api

import (
	"net/http"

	"github.com/classhub/trustgate/internal/api/presenter"
	"github.com/classhub/trustgate/internal/buildinfo"
)

// About describes the running issuer. It never exposes key material.
type About struct {
	buildinfo.Info
	Issuer    string `json:"issuer,omitempty"`
	KeyID     string `json:"key_id"`
	AccessTTL string `json:"access_ttl"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	codec := s.verifier.Codec()
	presenter.OK(w, r, About{
		Info:      buildinfo.Get(),
		Issuer:    codec.Issuer(),
		KeyID:     codec.KeyID(),
		AccessTTL: codec.AccessTTL().String(),
	})
}
