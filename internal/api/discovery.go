package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/prospect-cli/internal/discovery"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/store"
)

type startRequest struct {
	model.CompanyProfile
	Goal        string `json:"goal" validate:"required"`
	TargetCount int    `json:"target_count" validate:"gte=0,lte=100"`
}

func (s *server) handleStartDiscovery(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !s.decode(w, r, &req) {
		return
	}
	sess, err := s.Discovery.Start(s.Runs, discovery.Request{
		Company:     req.CompanyProfile,
		Goal:        req.Goal,
		TargetCount: req.TargetCount,
	})
	if errors.Is(err, discovery.ErrInvalidRequest) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"session_id":   sess.ID,
		"status":       sess.Status,
		"target_count": sess.TargetCount,
		"message":      "Discovery started for " + sess.CompanyName,
	})
}

func (s *server) session(w http.ResponseWriter, r *http.Request) *model.Session {
	sess, err := s.Discovery.Session(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		serverError(w, r, err)
		return nil
	}
	if sess == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return nil
	}
	return sess
}

func (s *server) handleDiscoveryStatus(w http.ResponseWriter, r *http.Request) {
	if sess := s.session(w, r); sess != nil {
		writeJSON(w, http.StatusOK, sess)
	}
}

func (s *server) handleDiscoveryResults(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	if sess.Status != model.SessionCompleted {
		writeError(w, http.StatusBadRequest, "discovery not completed yet")
		return
	}
	prospects := make([]profileItem, 0, len(sess.ProfileIDs))
	for _, id := range sess.ProfileIDs {
		p, err := s.Profiles.Get(r.Context(), id)
		if err != nil || p == nil {
			continue
		}
		prospects = append(prospects, newProfileItem(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":   sess.ID,
		"company_name": sess.CompanyName,
		"goal":         sess.Goal,
		"prospects":    prospects,
		"total":        len(prospects),
	})
}

func (s *server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 50)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	f := store.SessionFilter{Limit: limit}
	if v := r.URL.Query().Get("status"); v != "" {
		f.Status = model.SessionStatus(v)
	}
	sessions, err := s.Discovery.Sessions(r.Context(), f)
	if err != nil {
		serverError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []model.Session{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions, "total": len(sessions)})
}
