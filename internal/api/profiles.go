package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/profile"
	"github.com/sells-group/prospect-cli/internal/store"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	descriptionMax  = 100
)

// profileItem is the list view of a profile.
type profileItem struct {
	ID                  string             `json:"profile_id"`
	Name                string             `json:"name"`
	ProspectType        model.ProspectType `json:"prospect_type"`
	Status              model.Status       `json:"status"`
	RelevanceScore      model.Relevance    `json:"relevance_score"`
	Industry            string             `json:"industry"`
	Location            string             `json:"location"`
	BusinessDescription string             `json:"business_description"`
	Website             string             `json:"website,omitempty"`
	DiscoveringCompany  string             `json:"discovering_company"`
	CompanyGoal         string             `json:"company_goal"`
	Tags                []string           `json:"tags"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

func newProfileItem(p *model.Profile) profileItem {
	desc := p.BusinessDescription
	if utf8.RuneCountInString(desc) > descriptionMax {
		desc = string([]rune(desc)[:descriptionMax]) + "..."
	}
	return profileItem{
		ID:                  p.ID,
		Name:                p.Name,
		ProspectType:        p.ProspectType,
		Status:              p.Status,
		RelevanceScore:      p.GoalAlignment.RelevanceScore,
		Industry:            p.Industry,
		Location:            p.Location,
		BusinessDescription: desc,
		Website:             model.Deref(p.ContactInfo.Website),
		DiscoveringCompany:  p.DiscoveryMetadata.DiscoveringCompany,
		CompanyGoal:         p.DiscoveryMetadata.CompanyGoal,
		Tags:                p.Tags,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

type profilePage struct {
	Profiles []profileItem `json:"profiles"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	Limit    int           `json:"limit"`
	Pages    int           `json:"pages"`
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, eris.Errorf("%s must be a positive integer", name)
	}
	return n, nil
}

func filterFromQuery(r *http.Request) (model.Filter, error) {
	q := r.URL.Query()
	f := model.Filter{
		Company: q.Get("company"),
		Goal:    q.Get("goal"),
		Name:    q.Get("name"),
	}
	if v := q.Get("status"); v != "" {
		st, err := model.ParseStatus(v)
		if err != nil {
			return f, eris.Errorf("unknown status %q", v)
		}
		f.Status = st
	}
	if v := q.Get("relevance"); v != "" {
		rel, err := model.ParseRelevance(v)
		if err != nil {
			return f, eris.Errorf("unknown relevance %q", v)
		}
		f.Relevance = rel
	}
	for _, t := range strings.Split(q.Get("tags"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			f.Tags = append(f.Tags, t)
		}
	}
	return f, nil
}

func (s *server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	page, err := intParam(r, "page", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := intParam(r, "limit", defaultPageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit = min(limit, maxPageSize)
	f, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sums, err := s.Profiles.SearchSummaries(r.Context(), f)
	if err != nil {
		serverError(w, r, err)
		return
	}

	out := profilePage{
		Profiles: []profileItem{},
		Total:    len(sums),
		Page:     page,
		Limit:    limit,
		Pages:    (len(sums) + limit - 1) / limit,
	}
	// Pages past the end are empty; checking first keeps the offset from overflowing.
	start := len(sums)
	if page-1 <= len(sums)/limit {
		start = (page - 1) * limit
	}
	for _, sum := range sums[min(start, len(sums)):min(start+limit, len(sums))] {
		p, err := s.Profiles.Get(r.Context(), sum.ID)
		if err != nil || p == nil {
			continue
		}
		out.Profiles = append(out.Profiles, newProfileItem(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var in profile.NewProfile
	if !s.decode(w, r, &in) {
		return
	}
	p, err := s.Profiles.Create(r.Context(), in)
	if err != nil {
		serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// profileResult answers with p or maps err onto a status code.
func profileResult(w http.ResponseWriter, r *http.Request, status int, p *model.Profile, err error) {
	switch {
	case errors.Is(err, profile.ErrProfileNotFound), errors.Is(err, store.ErrInvalidID):
		writeError(w, http.StatusNotFound, "profile not found")
	case err != nil:
		serverError(w, r, err)
	case p == nil:
		writeError(w, http.StatusNotFound, "profile not found")
	default:
		writeJSON(w, status, p)
	}
}

func (s *server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.Profiles.Get(r.Context(), chi.URLParam(r, "id"))
	profileResult(w, r, http.StatusOK, p, err)
}

func (s *server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var d profile.Details
	if !s.decode(w, r, &d) {
		return
	}
	p, err := s.Profiles.UpdateDetails(r.Context(), chi.URLParam(r, "id"), d)
	profileResult(w, r, http.StatusOK, p, err)
}

func (s *server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	ok, err := s.Profiles.Delete(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, store.ErrInvalidID):
		writeError(w, http.StatusNotFound, "profile not found")
	case err != nil:
		serverError(w, r, err)
	case !ok:
		writeError(w, http.StatusNotFound, "profile not found")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

type statusRequest struct {
	Status model.Status `json:"status" validate:"required"`
}

func (s *server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !s.decode(w, r, &req) {
		return
	}
	p, err := s.Profiles.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	profileResult(w, r, http.StatusOK, p, err)
}

type noteRequest struct {
	Content  string `json:"content" validate:"required"`
	Category string `json:"category"`
}

func (s *server) handleAddNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if !s.decode(w, r, &req) {
		return
	}
	p, err := s.Profiles.AddNote(r.Context(), chi.URLParam(r, "id"), req.Content, req.Category)
	profileResult(w, r, http.StatusCreated, p, err)
}

type tagRequest struct {
	Tag string `json:"tag" validate:"required"`
}

func (s *server) handleAddTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if !s.decode(w, r, &req) {
		return
	}
	tag := strings.TrimSpace(req.Tag)
	if tag == "" {
		writeError(w, http.StatusBadRequest, "tag is required")
		return
	}
	p, err := s.Profiles.AddTag(r.Context(), chi.URLParam(r, "id"), tag)
	profileResult(w, r, http.StatusOK, p, err)
}

type interactionRequest struct {
	Type    string `json:"type" validate:"required"`
	Content string `json:"content" validate:"required"`
	Outcome string `json:"outcome"`
}

func (s *server) handleAddInteraction(w http.ResponseWriter, r *http.Request) {
	var req interactionRequest
	if !s.decode(w, r, &req) {
		return
	}
	p, err := s.Profiles.AddInteraction(r.Context(), chi.URLParam(r, "id"), req.Type, req.Content, req.Outcome)
	profileResult(w, r, http.StatusCreated, p, err)
}

func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	stamp := time.Now().UTC().Format("20060102_150405")
	switch format := r.URL.Query().Get("format"); format {
	case "", "csv":
		var buf bytes.Buffer
		if _, err := s.Profiles.ExportCSV(r.Context(), &buf); err != nil {
			serverError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="prospects_%s.csv"`, stamp))
		_, _ = w.Write(buf.Bytes())
	case "xlsx":
		dir, err := os.MkdirTemp("", "prospect-export-")
		if err != nil {
			serverError(w, r, err)
			return
		}
		defer os.RemoveAll(dir)
		name := fmt.Sprintf("prospects_%s.xlsx", stamp)
		path := filepath.Join(dir, name)
		if _, err := s.Profiles.ExportXLSX(r.Context(), path); err != nil {
			serverError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
		http.ServeFile(w, r, path)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported export format %q", format))
	}
}
