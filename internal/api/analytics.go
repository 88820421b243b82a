package api

import "net/http"

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	a, err := s.Profiles.Analytics(r.Context())
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stats":              a.Stats,
		"engagement_metrics": a.Engagement,
		"recent_activity":    a.RecentActivity,
	})
}

func (s *server) handleCharts(w http.ResponseWriter, r *http.Request) {
	a, err := s.Profiles.Analytics(r.Context())
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.Charts)
}
