// Package api serves profiles, analytics and discovery sessions over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/discovery"
	"github.com/sells-group/prospect-cli/internal/profile"
)

const maxBodySize = 1 << 20

// Deps wires the handler to the application.
type Deps struct {
	Profiles  *profile.Manager
	Discovery *discovery.Engine

	// Runs bounds background discoveries started over HTTP. It must outlive
	// individual requests; nil means context.Background().
	Runs context.Context

	CORSOrigins []string

	// Breakers reports backend circuit states on /health. Optional.
	Breakers func() map[string]string
}

type server struct {
	Deps
	validate *validator.Validate
}

// NewHandler builds the API router.
func NewHandler(d Deps) http.Handler {
	if d.Runs == nil {
		d.Runs = context.Background()
	}
	if len(d.CORSOrigins) == 0 {
		d.CORSOrigins = []string{"*"}
	}
	s := &server{Deps: d, validate: newValidator()}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/discovery", func(r chi.Router) {
			r.Post("/start", s.handleStartDiscovery)
			r.Get("/status/{id}", s.handleDiscoveryStatus)
			r.Get("/results/{id}", s.handleDiscoveryResults)
			r.Get("/sessions", s.handleListSessions)
		})

		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", s.handleListProfiles)
			r.Post("/", s.handleCreateProfile)
			r.Get("/export", s.handleExport)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetProfile)
				r.Patch("/", s.handleUpdateProfile)
				r.Delete("/", s.handleDeleteProfile)
				r.Put("/status", s.handleUpdateStatus)
				r.Post("/notes", s.handleAddNote)
				r.Post("/tags", s.handleAddTag)
				r.Post("/interactions", s.handleAddInteraction)
			})
		})

		r.Get("/analytics/stats", s.handleStats)
		r.Get("/analytics/charts", s.handleCharts)
	})

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{
		"status":   "ok",
		"profiles": s.Profiles.Count(),
	}
	if s.Breakers != nil {
		body["breakers"] = s.Breakers()
	}
	writeJSON(w, http.StatusOK, body)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// serverError logs err and answers with a generic 500.
func serverError(w http.ResponseWriter, r *http.Request, err error) {
	zap.L().Error("api: request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// decode reads a JSON body into v and validates it. It writes the 400
// response itself and reports whether the caller should continue.
func (s *server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "email":
			msgs = append(msgs, field+" must be a valid email")
		case "gte":
			msgs = append(msgs, field+" must be at least "+fe.Param())
		case "lte":
			msgs = append(msgs, field+" must be at most "+fe.Param())
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, ", ")
}
