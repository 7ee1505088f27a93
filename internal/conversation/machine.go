package conversation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"fixmate_backend/internal/domain"
	"fixmate_backend/platform/apperr"
	"fixmate_backend/platform/config"
	"fixmate_backend/platform/geo"
	"fixmate_backend/platform/phone"
	"fixmate_backend/platform/sanitize"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	maxDescriptionRunes = 2000
	maxCommentRunes     = 1000
	maxNameRunes        = 120
	maxGreetingWords    = 3
)

var greetings = map[string]struct{}{
	"hi": {}, "hello": {}, "hey": {}, "howzit": {}, "hiya": {},
	"sawubona": {}, "molo": {}, "dumela": {},
}

// Classifier maps a description to a skill category.
type Classifier interface {
	Classify(ctx context.Context, description string) domain.Category
}

// SentimentAnalyzer labels free-text feedback. It never fails; unusable
// answers come back as domain.SentimentUnknown.
type SentimentAnalyzer interface {
	Sentiment(ctx context.Context, text string) string
}

// JobGateway is the slice of the jobs service the conversation drives.
type JobGateway interface {
	CreateAndDispatch(ctx context.Context, req domain.JobRequest) (domain.DispatchResult, error)
	RecordRating(ctx context.Context, clientID, jobID int64, rating int) error
	RecordFeedback(ctx context.Context, clientID, jobID int64, comment, sentiment string) error
}

// AddressResolver geocodes an address typed instead of a location pin.
type AddressResolver interface {
	Resolve(ctx context.Context, address string) (geo.Point, string, error)
}

// NameStore saves the name given during registration.
type NameStore interface {
	SetFullName(ctx context.Context, clientID int64, name string) error
}

// Input is what a single inbound message contributes to the conversation.
type Input struct {
	Text     string
	Location *geo.Point
}

// Outcome is the next step and the replies to send once it is saved.
type Outcome struct {
	Next    Step
	Replies []string
}

func stay(step Step, replies ...string) Outcome {
	return Outcome{Next: step, Replies: replies}
}

// Machine decides the next step for one message. It holds no state of its
// own; the caller loads and saves the step around Handle.
type Machine struct {
	classifier Classifier
	sentiment  SentimentAnalyzer
	jobs       JobGateway
	names      NameStore
	addresses  AddressResolver
	fees       config.JobsConfig
	titleCase  cases.Caser
}

// NewMachine wires the collaborators the transitions depend on.
func NewMachine(classifier Classifier, sentiment SentimentAnalyzer, jobs JobGateway, names NameStore, fees config.JobsConfig) *Machine {
	return &Machine{
		classifier: classifier,
		sentiment:  sentiment,
		jobs:       jobs,
		names:      names,
		fees:       fees,
		titleCase:  cases.Title(language.English),
	}
}

// SetAddressResolver lets clients type an address when asked for a
// location. Without one only location pins are accepted.
func (m *Machine) SetAddressResolver(r AddressResolver) {
	m.addresses = r
}

// Handle applies one inbound message to the client's current step.
func (m *Machine) Handle(ctx context.Context, client domain.Client, step Step, in Input) (Outcome, error) {
	text := strings.TrimSpace(in.Text)

	if isCancel(text) && cancellable(step) {
		return stay(Idle{}, msgCancelled), nil
	}

	switch s := step.(type) {
	case Idle:
		return m.fromIdle(client, text, in.Location), nil
	case AwaitingServiceRequest:
		return m.fromMenu(client, s, text), nil
	case AwaitingLocation:
		return m.fromLocation(ctx, s, text, in.Location), nil
	case AwaitingContactNumber:
		return m.fromContactNumber(ctx, s, text), nil
	case AwaitingTermsApproval:
		return m.fromTerms(ctx, client, s, text)
	case AwaitingRating:
		return m.fromRating(ctx, client, s, text)
	case AwaitingRatingComment:
		return m.fromRatingComment(ctx, client, s, text)
	case AwaitingRegistrationName:
		return m.fromRegistrationName(ctx, client, s, text)
	}
	return stay(Idle{}), apperr.Internal(fmt.Sprintf("unhandled conversation step %T", step))
}

func (m *Machine) fromIdle(client domain.Client, text string, location *geo.Point) Outcome {
	switch {
	case text == "" && location != nil:
		return stay(Idle{}, msgDescribeFirst)
	case text == "", isGreeting(text):
		return stay(AwaitingServiceRequest{}, welcomeMessage(client))
	case isRegister(text):
		return stay(AwaitingRegistrationName{}, msgAskName)
	}
	return m.describe(text)
}

func (m *Machine) fromMenu(client domain.Client, step AwaitingServiceRequest, text string) Outcome {
	switch {
	case text == "", text == "1":
		return stay(step, msgAskDescription)
	case text == "2", isRegister(text):
		return stay(AwaitingRegistrationName{}, msgAskName)
	case isGreeting(text):
		return stay(step, welcomeMessage(client))
	}
	return m.describe(text)
}

func (m *Machine) describe(text string) Outcome {
	description := sanitize.Text(text, maxDescriptionRunes)
	if description == "" {
		return stay(AwaitingServiceRequest{}, msgAskDescription)
	}
	return stay(AwaitingLocation{Description: description}, msgAskLocation)
}

func (m *Machine) fromLocation(ctx context.Context, step AwaitingLocation, text string, location *geo.Point) Outcome {
	if location == nil && text != "" && m.addresses != nil {
		point, label, err := m.addresses.Resolve(ctx, text)
		if err != nil || point.Validate() != nil {
			return stay(step, msgAddressNotFound)
		}
		return stay(AwaitingContactNumber{
			Description: step.Description,
			Location:    point,
		}, addressFoundMessage(label))
	}
	if location == nil || location.Validate() != nil {
		return stay(step, msgAskLocation)
	}
	return stay(AwaitingContactNumber{
		Description: step.Description,
		Location:    *location,
	}, msgAskContact)
}

func (m *Machine) fromContactNumber(ctx context.Context, step AwaitingContactNumber, text string) Outcome {
	if !phone.LooksLikeContact(text) {
		return stay(step, msgInvalidContact)
	}

	category := m.classifier.Classify(ctx, step.Description)
	next := AwaitingTermsApproval{
		Description:     step.Description,
		Location:        step.Location,
		ContactNumber:   phone.NormalizeE164(text),
		Category:        category,
		CallOutFeeCents: m.fees.GetCallOutFeeCents(category.String()),
	}
	return stay(next, termsMessage(next))
}

func (m *Machine) fromTerms(ctx context.Context, client domain.Client, step AwaitingTermsApproval, text string) (Outcome, error) {
	if !isApproval(text) {
		return stay(Idle{}, msgTermsDeclined), nil
	}

	location := step.Location
	result, err := m.jobs.CreateAndDispatch(ctx, domain.JobRequest{
		ClientID:      client.ID,
		Description:   step.Description,
		Category:      step.Category,
		Location:      &location,
		ClientContact: step.ContactNumber,
		AmountCents:   step.CallOutFeeCents,
	})
	if err != nil {
		return Outcome{}, err
	}
	return stay(Idle{}, dispatchMessages(result)...), nil
}

func (m *Machine) fromRating(ctx context.Context, client domain.Client, step AwaitingRating, text string) (Outcome, error) {
	rating, err := strconv.Atoi(text)
	if err != nil || rating < domain.MinRating || rating > domain.MaxRating {
		return stay(Idle{}, msgRatingSkipped), nil
	}

	if err := m.jobs.RecordRating(ctx, client.ID, step.JobID, rating); err != nil {
		if isStaleJob(err) {
			return stay(Idle{}, msgRatingSkipped), nil
		}
		return Outcome{}, err
	}
	return stay(AwaitingRatingComment{JobID: step.JobID, Rating: rating}, msgAskComment), nil
}

func (m *Machine) fromRatingComment(ctx context.Context, client domain.Client, step AwaitingRatingComment, text string) (Outcome, error) {
	comment := sanitize.Text(text, maxCommentRunes)
	if comment == "" {
		return stay(step, msgAskComment), nil
	}

	sentiment := m.sentiment.Sentiment(ctx, comment)
	if err := m.jobs.RecordFeedback(ctx, client.ID, step.JobID, comment, sentiment); err != nil && !isStaleJob(err) {
		return Outcome{}, err
	}
	return stay(Idle{}, msgFeedbackThanks), nil
}

func (m *Machine) fromRegistrationName(ctx context.Context, client domain.Client, step AwaitingRegistrationName, text string) (Outcome, error) {
	name := m.formatName(text)
	if name == "" {
		return stay(step, msgInvalidName), nil
	}
	if err := m.names.SetFullName(ctx, client.ID, name); err != nil {
		return Outcome{}, err
	}
	return stay(Idle{}, registeredMessage(name)), nil
}

func (m *Machine) formatName(text string) string {
	cleaned := sanitize.Text(text, maxNameRunes)
	if !strings.ContainsFunc(cleaned, unicode.IsLetter) {
		return ""
	}
	return m.titleCase.String(strings.Join(strings.Fields(cleaned), " "))
}

// A job that vanished or was not completed cannot be rated; the prompt is
// simply dropped.
func isStaleJob(err error) bool {
	return apperr.Is(err, apperr.KindNotFound) || apperr.Is(err, apperr.KindConflict)
}

func cancellable(step Step) bool {
	switch step.(type) {
	case AwaitingServiceRequest, AwaitingLocation, AwaitingContactNumber, AwaitingRegistrationName:
		return true
	}
	return false
}

func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func isGreeting(text string) bool {
	w := words(text)
	if len(w) == 0 || len(w) > maxGreetingWords {
		return false
	}
	_, ok := greetings[w[0]]
	return ok
}

func isCancel(text string) bool {
	w := words(text)
	return len(w) == 1 && (w[0] == "cancel" || w[0] == "stop")
}

func isRegister(text string) bool {
	w := words(text)
	return len(w) == 1 && w[0] == "register"
}

// isApproval accepts any reply containing "yes", so "Yes please" and "yesss"
// both count.
func isApproval(text string) bool {
	return strings.Contains(strings.ToLower(text), "yes")
}
