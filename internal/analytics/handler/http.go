// Package handler exposes the reporting endpoints under /analytics.
package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"tracklix/tracking/internal/analytics/domain"
	"tracklix/tracking/internal/analytics/repository"
)

type Server struct {
	repo repository.Repository
}

func New(repo repository.Repository) *Server {
	return &Server{repo: repo}
}

// Register mounts the analytics routes on r.
func (s *Server) Register(r chi.Router) {
	r.Route("/analytics", func(r chi.Router) {
		r.Get("/overview", s.overview)
		r.Get("/event-volume", s.eventVolume)
		r.Get("/usage", s.featureUsage)
		r.Get("/funnel/user-activation", s.userActivationFunnel)
	})
}

// overview reports one UTC day. ?date= selects the day (any timestamp
// within it); the default is today.
func (s *Server) overview(w http.ResponseWriter, r *http.Request) {
	day := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, ok := parseTime(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid date")
			return
		}
		day = parsed
	}
	day = day.UTC().Truncate(24 * time.Hour)

	overview, err := s.repo.DailyOverview(r.Context(), day)
	if err != nil {
		log.Printf("analytics: overview query failed: %v", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (s *Server) eventVolume(w http.ResponseWriter, r *http.Request) {
	win, ok := windowParam(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	points, err := s.repo.EventVolume(r.Context(), win.Start, win.End, win.Bucket, q.Get("eventType"), q.Get("production"))
	if err != nil {
		log.Printf("analytics: event volume query failed: %v", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if points == nil {
		points = []domain.VolumePoint{}
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) featureUsage(w http.ResponseWriter, r *http.Request) {
	win, ok := windowParam(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	usage, err := s.repo.FeatureUsage(r.Context(), win.Start, win.End, q.Get("eventType"), q.Get("production"))
	if err != nil {
		log.Printf("analytics: usage query failed: %v", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if usage == nil {
		usage = []domain.FeatureUsage{}
	}
	writeJSON(w, http.StatusOK, usage)
}

func (s *Server) userActivationFunnel(w http.ResponseWriter, r *http.Request) {
	win, ok := windowParam(w, r)
	if !ok {
		return
	}

	counts, err := s.repo.UserActivationFunnel(r.Context(), win.Start, win.End, r.URL.Query().Get("production"))
	if err != nil {
		log.Printf("analytics: funnel query failed: %v", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, domain.BuildFunnel(counts))
}

// windowParam normalizes ?range= and ?endUtc= into a query window. A
// malformed endUtc writes a 400 and reports !ok.
func windowParam(w http.ResponseWriter, r *http.Request) (domain.Window, bool) {
	q := r.URL.Query()

	var end time.Time
	if raw := q.Get("endUtc"); raw != "" {
		parsed, ok := parseTime(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid endUtc")
			return domain.Window{}, false
		}
		end = parsed
	}
	return domain.NormalizeRange(q.Get("range"), end), true
}

func parseTime(raw string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("analytics: write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
