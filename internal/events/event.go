// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"fixmate_backend/platform/events"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	JobScoped   = events.JobScoped
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Job Domain Events
// =============================================================================

// JobDispatched is published when a fixer is offered a job, either by the
// scoring engine or by an administrator. NotifyClient is false when the
// client is told in the conversation reply instead.
type JobDispatched struct {
	BaseEvent
	JobID         int64  `json:"jobId"`
	ClientPhone   string `json:"clientPhone"`
	FixerID       int64  `json:"fixerId"`
	FixerName     string `json:"fixerName"`
	FixerPhone    string `json:"fixerPhone"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	ClientContact string `json:"clientContact"`
	OfferURL      string `json:"offerUrl"`
	NotifyClient  bool   `json:"notifyClient"`
}

func (e JobDispatched) EventName() string { return "jobs.dispatched" }
func (e JobDispatched) JobRef() int64     { return e.JobID }

// JobUnassigned is published when no fixer could be found for a job, or the
// reassignment bound was reached. The job now needs a manual assignment.
type JobUnassigned struct {
	BaseEvent
	JobID        int64  `json:"jobId"`
	ClientPhone  string `json:"clientPhone"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	Status       string `json:"status"`
	Declines     int    `json:"declines"`
	NotifyClient bool   `json:"notifyClient"`
}

func (e JobUnassigned) EventName() string { return "jobs.unassigned" }
func (e JobUnassigned) JobRef() int64     { return e.JobID }

// JobAccepted is published when the assigned fixer accepts an offer.
type JobAccepted struct {
	BaseEvent
	JobID             int64  `json:"jobId"`
	ClientPhone       string `json:"clientPhone"`
	FixerName         string `json:"fixerName"`
	FixerPhone        string `json:"fixerPhone"`
	TrackingReference string `json:"trackingReference"`
	CompleteURL       string `json:"completeUrl"`
}

func (e JobAccepted) EventName() string { return "jobs.accepted" }
func (e JobAccepted) JobRef() int64     { return e.JobID }

// JobCompleted is published when the fixer marks the job complete.
type JobCompleted struct {
	BaseEvent
	JobID             int64  `json:"jobId"`
	FixerPhone        string `json:"fixerPhone"`
	FeeCents          int64  `json:"feeCents"`
	TrackingReference string `json:"trackingReference"`
}

func (e JobCompleted) EventName() string { return "jobs.completed" }
func (e JobCompleted) JobRef() int64     { return e.JobID }

// JobCancelled is published when a job is cancelled by an admin or by a
// failed payment.
type JobCancelled struct {
	BaseEvent
	JobID       int64   `json:"jobId"`
	ClientPhone string  `json:"clientPhone"`
	FixerPhone  *string `json:"fixerPhone,omitempty"`
	Reason      string  `json:"reason"`
}

func (e JobCancelled) EventName() string { return "jobs.cancelled" }
func (e JobCancelled) JobRef() int64     { return e.JobID }

// PaymentReceived is published when the gateway confirms a payment.
type PaymentReceived struct {
	BaseEvent
	JobID       int64  `json:"jobId"`
	ClientPhone string `json:"clientPhone"`
	AmountCents int64  `json:"amountCents"`
}

func (e PaymentReceived) EventName() string { return "payments.received" }
func (e PaymentReceived) JobRef() int64     { return e.JobID }

// =============================================================================
// Auth Domain Events
// =============================================================================

// LoginLinkRequested is published when a client or fixer asks for a login
// link. The link is delivered over WhatsApp.
type LoginLinkRequested struct {
	BaseEvent
	Phone string `json:"phone"`
	Kind  string `json:"kind"`
	URL   string `json:"url"`
}

func (e LoginLinkRequested) EventName() string { return "auth.login_link.requested" }

// =============================================================================
// Notification Events
// =============================================================================

// WhatsAppDeliveryFailed is published when an outbox message exhausted its
// delivery attempts.
type WhatsAppDeliveryFailed struct {
	BaseEvent
	Phone    string `json:"phone"`
	Body     string `json:"body"`
	Reason   string `json:"reason"`
	Attempts int    `json:"attempts"`
}

func (e WhatsAppDeliveryFailed) EventName() string { return "notification.whatsapp.failed" }
