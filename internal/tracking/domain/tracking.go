// Package domain holds the tracking data model: entities, sessions, events,
// and the submissions that flow through the admission queue.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Entity is a company's workspace within one production code. There is at
// most one entity per (company, production) pair and its id is derived
// deterministically from that pair (see DeriveEntityID).
type Entity struct {
	EntityID   uuid.UUID `json:"entity_id"`
	CompanyID  uuid.UUID `json:"company_id"`
	Production string    `json:"production"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Session is a bounded run of events from one employee within one entity.
// EndedAt is nil while the session is open.
type Session struct {
	SessionID      uuid.UUID  `json:"session_id"`
	EntityID       uuid.UUID  `json:"entity_id"`
	EmployeeID     uuid.UUID  `json:"employee_id"`
	CompanyID      uuid.UUID  `json:"company_id"`
	StartedAt      time.Time  `json:"started_at"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	EndedAt        *time.Time `json:"ended_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Event is a single tracking event. Append-only; never mutated.
type Event struct {
	ID             uuid.UUID `json:"id"`
	EntityID       uuid.UUID `json:"entity_id"`
	SessionID      uuid.UUID `json:"session_id"`
	EventType      string    `json:"event_type"`
	EventName      string    `json:"event_name"`
	PageName       string    `json:"page_name"`
	ComponentName  string    `json:"component_name"`
	Timestamp      time.Time `json:"timestamp"`
	Refer          string    `json:"refer"`
	ExposeTime     int       `json:"expose_time"`
	EmployeeID     uuid.UUID `json:"employee_id"`
	CompanyID      uuid.UUID `json:"company_id"`
	DeviceType     string    `json:"device_type"`
	OsVersion      string    `json:"os_version"`
	BrowserVersion string    `json:"browser_version"`
	PageURL        string    `json:"page_url"`
	PageTitle      string    `json:"page_title"`
	Properties     string    `json:"properties"`
}

// EventPayload is the client-supplied part of an event submission, before
// entity and session resolution.
type EventPayload struct {
	Production     string     `json:"production"`
	EventType      string     `json:"eventType"`
	EventName      string     `json:"eventName"`
	PageName       string     `json:"pageName"`
	ComponentName  string     `json:"componentName"`
	Timestamp      *time.Time `json:"timestamp"`
	Refer          string     `json:"refer"`
	ExposeTime     int        `json:"exposeTime"`
	DeviceType     string     `json:"deviceType"`
	OsVersion      string     `json:"osVersion"`
	BrowserVersion string     `json:"browserVersion"`
	PageURL        string     `json:"pageUrl"`
	PageTitle      string     `json:"pageTitle"`
	Properties     string     `json:"properties"`
}

// Submission is the unit of work placed on the admission queue: an
// already-authenticated event payload. SessionID is uuid.Nil when the
// client did not supply a session token.
type Submission struct {
	SessionID  uuid.UUID
	CompanyID  uuid.UUID
	EmployeeID uuid.UUID
	Payload    EventPayload
}

// ToEvent builds the event row for a submission once its owning session is
// known. Missing timestamps default to now (UTC).
func (s Submission) ToEvent(sess *Session, now time.Time) *Event {
	ts := now
	if s.Payload.Timestamp != nil {
		ts = s.Payload.Timestamp.UTC()
	}
	props := s.Payload.Properties
	if props == "" {
		props = "{}"
	}
	return &Event{
		ID:             uuid.New(),
		EntityID:       sess.EntityID,
		SessionID:      sess.SessionID,
		EventType:      s.Payload.EventType,
		EventName:      s.Payload.EventName,
		PageName:       s.Payload.PageName,
		ComponentName:  s.Payload.ComponentName,
		Timestamp:      ts,
		Refer:          s.Payload.Refer,
		ExposeTime:     s.Payload.ExposeTime,
		EmployeeID:     sess.EmployeeID,
		CompanyID:      sess.CompanyID,
		DeviceType:     s.Payload.DeviceType,
		OsVersion:      s.Payload.OsVersion,
		BrowserVersion: s.Payload.BrowserVersion,
		PageURL:        s.Payload.PageURL,
		PageTitle:      s.Payload.PageTitle,
		Properties:     props,
	}
}
