package conversation

import (
	"encoding/json"
	"fmt"

	"fixmate_backend/internal/domain"
	"fixmate_backend/platform/geo"
)

// State names stored in clients.conversation_state. Idle is stored as NULL.
const (
	StateIdle                     = ""
	StateAwaitingServiceRequest   = "awaiting_service_request"
	StateAwaitingLocation         = "awaiting_location"
	StateAwaitingContactNumber    = "awaiting_contact_number"
	StateAwaitingTermsApproval    = "awaiting_terms_approval"
	StateAwaitingRating           = "awaiting_rating"
	StateAwaitingRatingComment    = "awaiting_rating_comment"
	StateAwaitingRegistrationName = "awaiting_name_for_registration"
)

// Step is one conversation state together with the data collected so far.
// Each state carries exactly the fields it needs, so a step can never hold
// a payload that belongs to another state.
type Step interface {
	State() string
}

// Idle is the resting state between requests.
type Idle struct{}

// AwaitingServiceRequest follows the welcome menu.
type AwaitingServiceRequest struct{}

// AwaitingLocation holds the description while waiting for a location pin.
type AwaitingLocation struct {
	Description string `json:"description"`
}

// AwaitingContactNumber holds the description and job site.
type AwaitingContactNumber struct {
	Description string    `json:"description"`
	Location    geo.Point `json:"location"`
}

// AwaitingTermsApproval holds the complete request and the quoted fee.
type AwaitingTermsApproval struct {
	Description     string          `json:"description"`
	Location        geo.Point       `json:"location"`
	ContactNumber   string          `json:"contact_number"`
	Category        domain.Category `json:"category"`
	CallOutFeeCents int64           `json:"call_out_fee_cents"`
}

// AwaitingRating waits for a 1-5 score for a completed job.
type AwaitingRating struct {
	JobID int64 `json:"job_id"`
}

// AwaitingRatingComment waits for a free-text comment after the score.
type AwaitingRatingComment struct {
	JobID  int64 `json:"job_id"`
	Rating int   `json:"rating"`
}

// AwaitingRegistrationName waits for the client's full name.
type AwaitingRegistrationName struct{}

func (Idle) State() string                     { return StateIdle }
func (AwaitingServiceRequest) State() string   { return StateAwaitingServiceRequest }
func (AwaitingLocation) State() string         { return StateAwaitingLocation }
func (AwaitingContactNumber) State() string    { return StateAwaitingContactNumber }
func (AwaitingTermsApproval) State() string    { return StateAwaitingTermsApproval }
func (AwaitingRating) State() string           { return StateAwaitingRating }
func (AwaitingRatingComment) State() string    { return StateAwaitingRatingComment }
func (AwaitingRegistrationName) State() string { return StateAwaitingRegistrationName }

// Encode turns a step into the stored state and payload. Idle encodes to
// nil, nil so both columns are cleared together.
func Encode(step Step) (*string, []byte, error) {
	if step == nil || step.State() == StateIdle {
		return nil, nil, nil
	}
	payload, err := json.Marshal(step)
	if err != nil {
		return nil, nil, fmt.Errorf("encode %s payload: %w", step.State(), err)
	}
	state := step.State()
	return &state, payload, nil
}

// Decode restores a step from the stored state and payload.
func Decode(state *string, payload []byte) (Step, error) {
	if state == nil || *state == StateIdle {
		return Idle{}, nil
	}

	switch *state {
	case StateAwaitingServiceRequest:
		return decodeInto[AwaitingServiceRequest](*state, payload)
	case StateAwaitingLocation:
		return decodeInto[AwaitingLocation](*state, payload)
	case StateAwaitingContactNumber:
		return decodeInto[AwaitingContactNumber](*state, payload)
	case StateAwaitingTermsApproval:
		return decodeInto[AwaitingTermsApproval](*state, payload)
	case StateAwaitingRating:
		return decodeInto[AwaitingRating](*state, payload)
	case StateAwaitingRatingComment:
		return decodeInto[AwaitingRatingComment](*state, payload)
	case StateAwaitingRegistrationName:
		return decodeInto[AwaitingRegistrationName](*state, payload)
	}
	return nil, fmt.Errorf("unknown conversation state %q", *state)
}

func decodeInto[T Step](state string, payload []byte) (Step, error) {
	var step T
	if len(payload) == 0 {
		return nil, fmt.Errorf("missing payload for state %q", state)
	}
	if err := json.Unmarshal(payload, &step); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", state, err)
	}
	return step, nil
}
