package api

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/classhub/trustgate/internal/api/presenter"
)

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	presenter.OK(w, r, s.tasks.ListStatus())
}

func (s *Server) handleTriggerTask(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.tasks.Trigger(r.Context(), name); err != nil {
		presenter.Err(w, r, err)
		return
	}
	log.Ctx(r.Context()).Info().Str("task", name).Msg("task triggered")
	presenter.OK(w, r, name)
}

func (s *Server) handleTaskLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.tasks.GetLogs(r.PathValue("name"))
	if err != nil {
		presenter.Err(w, r, err)
		return
	}
	presenter.OK(w, r, logs)
}
