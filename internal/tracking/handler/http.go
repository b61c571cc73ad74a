// Package handler exposes the tracking HTTP API: event submission,
// entity/session/event reads, administrative deletes, and the queue
// status surface.
package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tracklix/tracking/internal/tracking/domain"
	"tracklix/tracking/internal/tracking/queue"
	"tracklix/tracking/internal/tracking/repository"
	"tracklix/tracking/internal/tracking/worker"
)

// Server handles the tracking HTTP routes.
type Server struct {
	repo       repository.Repository
	queue      *queue.Queue
	worker     *worker.Worker
	cookieName string
}

// New returns a tracking HTTP server. The queue and worker are the
// ingestion pipeline the submission route feeds.
func New(repo repository.Repository, q *queue.Queue, w *worker.Worker, cookieName string) *Server {
	return &Server{repo: repo, queue: q, worker: w, cookieName: cookieName}
}

// Register mounts the tracking routes on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.health)
	r.Get("/queue/stats", s.queueStats)

	r.Route("/entities", func(r chi.Router) {
		r.Get("/", s.listEntities)
		r.Post("/events", s.createEvent)
		// {id} is a session id on the event routes and an entity id on
		// the rest.
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getEntity)
			r.Delete("/", s.deleteEntity)
			r.Get("/sessions", s.listSessions)
			r.Post("/events", s.createEvent)
			r.Get("/events", s.listEvents)
		})
	})
	r.Delete("/sessions/{id}", s.deleteSession)
}

type createEventRequest struct {
	SessionID *uuid.UUID `json:"sessionId"`
	domain.EventPayload
}

// createEvent admits an event submission. The caller's company and
// employee come from the session cookie; the response is 202 when the
// queue accepted the submission and 429 when it was dropped. A dropped
// submission is never reported as a success.
func (s *Server) createEvent(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromCookie(r, s.cookieName)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing or invalid session cookie")
		return
	}

	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Production == "" || req.EventType == "" || req.EventName == "" {
		writeError(w, http.StatusBadRequest, "production, eventType and eventName are required")
		return
	}

	sessionID := uuid.Nil
	if raw := chi.URLParam(r, "id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid session id")
			return
		}
		sessionID = id
	} else if req.SessionID != nil {
		sessionID = *req.SessionID
	}

	sub := domain.Submission{
		SessionID:  sessionID,
		CompanyID:  claims.CompanyID,
		EmployeeID: claims.EmployeeID,
		Payload:    req.EventPayload,
	}
	if !s.queue.Submit(sub) {
		writeError(w, http.StatusTooManyRequests, "event queue is full, retry later")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"accepted":   true,
		"session_id": sessionID,
	})
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	events, err := s.repo.ListEventsBySession(r.Context(), sessionID, limitParam(r))
	if err != nil {
		log.Printf("handler: list events: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []*domain.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) listEntities(w http.ResponseWriter, r *http.Request) {
	entities, err := s.repo.ListEntities(r.Context(), limitParam(r))
	if err != nil {
		log.Printf("handler: list entities: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list entities")
		return
	}
	if entities == nil {
		entities = []*domain.Entity{}
	}
	writeJSON(w, http.StatusOK, entities)
}

func (s *Server) getEntity(w http.ResponseWriter, r *http.Request) {
	entityID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entity id")
		return
	}
	entity, err := s.repo.GetEntity(r.Context(), entityID)
	if err != nil {
		log.Printf("handler: get entity %s: %v", entityID, err)
		writeError(w, http.StatusInternalServerError, "failed to get entity")
		return
	}
	if entity == nil {
		writeError(w, http.StatusNotFound, "entity not found")
		return
	}
	writeJSON(w, http.StatusOK, entity)
}

func (s *Server) deleteEntity(w http.ResponseWriter, r *http.Request) {
	entityID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entity id")
		return
	}
	if err := s.repo.DeleteEntityCascade(r.Context(), entityID); err != nil {
		log.Printf("handler: delete entity %s: %v", entityID, err)
		writeError(w, http.StatusInternalServerError, "failed to delete entity")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	entityID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entity id")
		return
	}
	sessions, err := s.repo.ListSessions(r.Context(), entityID, limitParam(r))
	if err != nil {
		log.Printf("handler: list sessions for %s: %v", entityID, err)
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []*domain.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	if err := s.repo.DeleteSessionCascade(r.Context(), sessionID); err != nil {
		log.Printf("handler: delete session %s: %v", sessionID, err)
		writeError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type queueStatsResponse struct {
	queue.Stats
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}

// queueStats reports the pipeline counters for operational polling.
func (s *Server) queueStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, queueStatsResponse{
		Stats:     s.queue.Snapshot(),
		Processed: s.worker.Processed(),
		Failed:    s.worker.Failed(),
	})
}

// limitParam returns the limit query parameter clamped to 1..500,
// defaulting to 50.
func limitParam(r *http.Request) int {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	switch {
	case limit < 1:
		return 50
	case limit > 500:
		return 500
	default:
		return limit
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("handler: write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
