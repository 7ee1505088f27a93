package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"fixmate_backend/internal/domain"
	"fixmate_backend/internal/events"
	"fixmate_backend/internal/jobs/repository"
	"fixmate_backend/platform/apperr"
	"fixmate_backend/platform/config"
	"fixmate_backend/platform/db"
	"fixmate_backend/platform/geo"
	"fixmate_backend/platform/logger"
)

// lockLog records the order rows are locked in.
type lockLog struct {
	order []string
}

func (l *lockLog) add(row string) {
	if l != nil {
		l.order = append(l.order, row)
	}
}

type memRepo struct {
	jobs     map[int64]domain.Job
	declines map[int64][]int64
	nextID   int64
	locks    *lockLog
}

func newMemRepo() *memRepo {
	return &memRepo{jobs: map[int64]domain.Job{}, declines: map[int64][]int64{}}
}

func (r *memRepo) GetByID(_ context.Context, id int64) (domain.Job, error) {
	job, ok := r.jobs[id]
	if !ok {
		return domain.Job{}, apperr.NotFound("job not found")
	}
	return job, nil
}

func (r *memRepo) GetForUpdate(ctx context.Context, id int64) (domain.Job, error) {
	r.locks.add("job")
	return r.GetByID(ctx, id)
}

func (r *memRepo) List(_ context.Context, params repository.ListParams) ([]domain.Job, int, error) {
	out := make([]domain.Job, 0)
	for _, job := range r.jobs {
		if params.ClientID != nil && job.ClientID != *params.ClientID {
			continue
		}
		out = append(out, job)
	}
	return out, len(out), nil
}

func (r *memRepo) ListDeclinedFixers(_ context.Context, jobID int64) ([]int64, error) {
	return append([]int64(nil), r.declines[jobID]...), nil
}

func (r *memRepo) Create(_ context.Context, params repository.CreateParams) (domain.Job, error) {
	r.nextID++
	job := domain.Job{
		ID:                  r.nextID,
		ClientID:            params.ClientID,
		Description:         params.Description,
		Category:            params.Category,
		Status:              params.Status,
		Latitude:            params.Latitude,
		Longitude:           params.Longitude,
		ClientContactNumber: params.ClientContactNumber,
		AmountCents:         params.AmountCents,
		PaymentStatus:       domain.PaymentPending,
		FixerFeeStatus:      domain.FixerFeePending,
	}
	r.jobs[job.ID] = job
	return job, nil
}

func (r *memRepo) Update(_ context.Context, job domain.Job) (domain.Job, error) {
	if job.Status.HasFixer() != (job.FixerID != nil) {
		return domain.Job{}, errors.New("fixer_id does not match status")
	}
	r.jobs[job.ID] = job
	return job, nil
}

func (r *memRepo) RecordDecline(_ context.Context, jobID, fixerID int64, _ string) error {
	r.declines[jobID] = append(r.declines[jobID], fixerID)
	return nil
}

type fakeMatcher struct {
	pool     []domain.Fixer
	excluded [][]int64
}

func (m *fakeMatcher) SelectBestFixer(_ context.Context, _ domain.Job, exclude []int64) (*domain.Fixer, error) {
	m.excluded = append(m.excluded, exclude)
	for _, f := range m.pool {
		skip := false
		for _, id := range exclude {
			if id == f.ID {
				skip = true
			}
		}
		if !skip {
			fixer := f
			return &fixer, nil
		}
	}
	return nil, nil
}

func (m *fakeMatcher) Reserve(_ context.Context, fixerID int64) (*domain.Fixer, error) {
	for _, f := range m.pool {
		if f.ID == fixerID {
			fixer := f
			return &fixer, nil
		}
	}
	return nil, apperr.NotFound("fixer not found")
}

type fakeFixers struct {
	byID     map[int64]domain.Fixer
	deducted map[int64]int64
	locks    *lockLog
}

func (f *fakeFixers) GetByID(_ context.Context, id int64) (domain.Fixer, error) {
	fixer, ok := f.byID[id]
	if !ok {
		return domain.Fixer{}, apperr.NotFound("fixer not found")
	}
	return fixer, nil
}

func (f *fakeFixers) DeductFee(_ context.Context, fixerID int64, cents int64) error {
	f.locks.add("fixer")
	f.deducted[fixerID] += cents
	return nil
}

type fakeClients struct {
	locks *lockLog
}

func (fakeClients) GetByID(_ context.Context, id int64) (domain.Client, error) {
	return domain.Client{ID: id, PhoneNumber: "+27821110000"}, nil
}

func (f fakeClients) LockByID(ctx context.Context, id int64) (domain.Client, error) {
	f.locks.add("client")
	return f.GetByID(ctx, id)
}

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) names() []string {
	out := make([]string, 0, len(b.published))
	for _, e := range b.published {
		out = append(out, e.EventName())
	}
	return out
}

type fakeRatings struct {
	calls [][2]int64
	err   error
}

func (f *fakeRatings) BeginRating(_ context.Context, clientID, jobID int64) error {
	f.calls = append(f.calls, [2]int64{clientID, jobID})
	return f.err
}

type fakeOffers struct {
	scheduled []int64
}

func (f *fakeOffers) ScheduleOfferTimeout(_ context.Context, _ int64, fixerID int64, _ time.Duration) error {
	f.scheduled = append(f.scheduled, fixerID)
	return nil
}

type fakeLinks struct{}

func (fakeLinks) FixerActionURL(_ context.Context, jobID, fixerID int64, purpose domain.LinkPurpose) (string, error) {
	return "https://fixmate.test/" + string(purpose), nil
}

type testConfig struct {
	mode             string
	maxReassignments int
}

func (c testConfig) GetPlatformFeeCents() int64      { return 5000 }
func (c testConfig) GetCallOutFeeCents(string) int64 { return 35000 }
func (c testConfig) GetDispatchMode() string         { return c.mode }
func (c testConfig) GetMaxReassignments() int        { return c.maxReassignments }
func (c testConfig) GetOfferTimeout() time.Duration  { return 30 * time.Minute }

type harness struct {
	svc     *Service
	repo    *memRepo
	matcher *fakeMatcher
	fixers  *fakeFixers
	bus     *recordingBus
	ratings *fakeRatings
	offers  *fakeOffers
	locks   *lockLog
}

func newHarness(cfg testConfig, pool ...domain.Fixer) *harness {
	locks := &lockLog{}
	h := &harness{
		locks:   locks,
		repo:    newMemRepo(),
		matcher: &fakeMatcher{pool: pool},
		fixers:  &fakeFixers{byID: map[int64]domain.Fixer{}, deducted: map[int64]int64{}},
		bus:     &recordingBus{},
		ratings: &fakeRatings{},
		offers:  &fakeOffers{},
	}
	h.repo.locks = locks
	h.fixers.locks = locks
	for _, f := range pool {
		h.fixers.byID[f.ID] = f
	}
	h.svc = New(h.repo, db.LocalTransactor{}, h.matcher, h.fixers, fakeClients{locks: locks}, h.bus, cfg, logger.New("development"))
	h.svc.SetRatingPrompter(h.ratings)
	h.svc.SetOfferScheduler(h.offers)
	h.svc.SetLinkIssuer(fakeLinks{})
	h.svc.newRef = func() string { return "FM-TEST0001" }
	return h
}

func fixer(id int64, name string) domain.Fixer {
	return domain.Fixer{
		ID:            id,
		FullName:      name,
		PhoneNumber:   "+2782000000" + strconv.FormatInt(id, 10),
		IsActive:      true,
		VettingStatus: domain.VettingApproved,
	}
}

func request() domain.JobRequest {
	return domain.JobRequest{
		ClientID:      7,
		Description:   "Geyser is leaking",
		Category:      domain.CategoryPlumbing,
		Location:      &geo.Point{Lat: -26.2041, Lon: 28.0473},
		ClientContact: "+27821234567",
		AmountCents:   35000,
	}
}

func TestCreateAndDispatchAssignsBestFixer(t *testing.T) {
	h := newHarness(testConfig{mode: config.DispatchImmediate, maxReassignments: 3}, fixer(1, "Thabo"))

	result, err := h.svc.CreateAndDispatch(context.Background(), request())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Job.Status != domain.JobAssigned || !result.Job.IsAssignedTo(1) {
		t.Fatalf("expected job assigned to fixer 1, got %s %v", result.Job.Status, result.Job.FixerID)
	}
	if result.Fixer == nil || result.Fixer.ID != 1 {
		t.Fatalf("expected fixer in result")
	}
	if len(h.offers.scheduled) != 1 {
		t.Fatalf("expected offer timeout to be scheduled")
	}

	names := h.bus.names()
	if len(names) != 1 || names[0] != "jobs.dispatched" {
		t.Fatalf("unexpected events %v", names)
	}
	dispatched := h.bus.published[0].(events.JobDispatched)
	if dispatched.NotifyClient {
		t.Fatalf("initial dispatch is confirmed in the conversation reply")
	}
	if dispatched.OfferURL != "https://fixmate.test/fixer_offer" {
		t.Fatalf("unexpected offer url %q", dispatched.OfferURL)
	}
}

func TestCreateAndDispatchWithoutFixersLeavesJobUnassigned(t *testing.T) {
	h := newHarness(testConfig{mode: config.DispatchImmediate, maxReassignments: 3})

	result, err := h.svc.CreateAndDispatch(context.Background(), request())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Job.Status != domain.JobUnassigned || result.Job.FixerID != nil || result.Fixer != nil {
		t.Fatalf("expected unassigned job, got %+v", result.Job)
	}
	if names := h.bus.names(); len(names) != 1 || names[0] != "jobs.unassigned" {
		t.Fatalf("unexpected events %v", names)
	}
}

func TestCreateAndDispatchRejectsEmptyDescription(t *testing.T) {
	h := newHarness(testConfig{mode: config.DispatchImmediate})
	req := request()
	req.Description = "   "

	if _, err := h.svc.CreateAndDispatch(context.Background(), req); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(h.repo.jobs) != 0 {
		t.Fatalf("expected no job to be created")
	}
}

func TestAfterPaymentDispatchWaitsForPayment(t *testing.T) {
	h := newHarness(testConfig{mode: config.DispatchAfterPayment, maxReassignments: 3}, fixer(1, "Thabo"))
	ctx := context.Background()

	result, err := h.svc.CreateAndDispatch(ctx, request())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Job.Status != domain.JobAwaitingPayment {
		t.Fatalf("expected awaiting_payment, got %s", result.Job.Status)
	}
	if len(h.matcher.excluded) != 0 {
		t.Fatalf("matching must wait for payment")
	}

	paid, err := h.svc.MarkPaid(ctx, result.Job.ID)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if paid.Status != domain.JobAssigned || paid.PaymentStatus != domain.PaymentPaid {
		t.Fatalf("expected paid assigned job, got %s/%s", paid.Status, paid.PaymentStatus)
	}

	again, err := h.svc.MarkPaid(ctx, result.Job.ID)
	if err != nil {
		t.Fatalf("repeated callback: %v", err)
	}
	if again.Status != domain.JobAssigned || len(h.matcher.excluded) != 1 {
		t.Fatalf("repeated paid callback must not dispatch again")
	}
}

func TestPaidJobWithoutFixerBecomesPaidUnassigned(t *testing.T) {
	h := newHarness(testConfig{mode: config.DispatchAfterPayment, maxReassignments: 3})
	ctx := context.Background()

	result, err := h.svc.CreateAndDispatch(ctx, request())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	paid, err := h.svc.MarkPaid(ctx, result.Job.ID)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if paid.Status != domain.JobPaidUnassigned {
		t.Fatalf("expected paid_unassigned, got %s", paid.Status)
	}
}

func TestAcceptOnlyByAssignedFixer(t *testing.T) {
	h := newHarness(testConfig{mode: config.DispatchImmediate, maxReassignments: 3}, fixer(1, "Thabo"))
	ctx := context.Background()
	result, _ := h.svc.CreateAndDispatch(ctx, request())

	if _, err := h.svc.Accept(ctx, result.Job.ID, 99); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict for another fixer, got %v", err)
	}

	accepted, err := h.svc.Accept(ctx, result.Job.ID, 1)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != domain.JobAccepted || accepted.TrackingReference == nil || *accepted.TrackingReference != "FM-TEST0001" {
		t.Fatalf("unexpected accepted job %+v", accepted)
	}

	if _, err := h.svc.Accept(ctx, result.Job.ID, 1); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected second accept to conflict, got %v", err)
	}

	last := h.bus.published[len(h.bus.published)-1].(events.JobAccepted)
	if last.CompleteURL != "https://fixmate.test/fixer_complete" || last.FixerName != "Thabo" {
		t.Fatalf("unexpected accepted event %+v", last)
	}
}

func TestDeclineReassignsUntilBound(t *testing.T) {
	h := newHarness(testConfig{mode: config.DispatchImmediate, maxReassignments: 1},
		fixer(1, "Thabo"), fixer(2, "Lerato"), fixer(3, "Sizwe"))
	ctx := context.Background()
	result, _ := h.svc.CreateAndDispatch(ctx, request())

	reassigned, err := h.svc.Decline(ctx, result.Job.ID, 1)
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if !reassigned.IsAssignedTo(2) {
		t.Fatalf("expected reassignment to fixer 2, got %v", reassigned.FixerID)
	}
	if got := h.matcher.excluded[1]; len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected fixer 1 excluded, got %v", got)
	}

	final, err := h.svc.Decline(ctx, result.Job.ID, 2)
	if err != nil {
		t.Fatalf("second decline: %v", err)
	}
	if final.Status != domain.JobUnassigned || final.FixerID != nil {
		t.Fatalf("expected job to wait for an admin, got %s", final.Status)
	}

	unassigned := h.bus.published[len(h.bus.published)-1].(events.JobUnassigned)
	if unassigned.Declines != 2 || !unassigned.NotifyClient {
		t.Fatalf("unexpected unassigned event %+v", unassigned)
	}
}

func TestDeclineByOtherFixerConflicts(t *testing.T) {
	h := newHarness(testConfig{mode: config.DispatchImmediate, maxReassignments: 3}, fixer(1, "Thabo"))
	ctx := context.Background()
	result, _ := h.svc.CreateAndDispatch(ctx, request())

	if _, err := h.svc.Decline(ctx, result.Job.ID, 2); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestExpireOfferIgnoresAcceptedJob(t *testing.T) {
	h := newHarness(testConfig{mode: config.DispatchImmediate, maxReassignments: 3}, fixer(1, "Thabo"), fixer(2, "Lerato"))
	ctx := context.Background()
	result, _ := h.svc.CreateAndDispatch(ctx, request())
	if _, err := h.svc.Accept(ctx, result.Job.ID, 1); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if err := h.svc.ExpireOffer(ctx, result.Job.ID, 1); err != nil {
		t.Fatalf("expire: %v", err)
	}
	job := h.repo.jobs[result.Job.ID]
	if job.Status != domain.JobAccepted || !job.IsAssignedTo(1) {
		t.Fatalf("expired offer must not touch an accepted job")
	}
	if len(h.repo.declines[result.Job.ID]) != 0 {
		t.Fatalf("no decline should be recorded")
	}
}

func TestExpireOfferReassigns(t *testing.T) {
	h := newHarness(testConfig{mode: config.DispatchImmediate, maxReassignments: 3}, fixer(1, "Thabo"), fixer(2, "Lerato"))
	ctx := context.Background()
	result, _ := h.svc.CreateAndDispatch(ctx, request())

	if err := h.svc.ExpireOffer(ctx, result.Job.ID, 1); err != nil {
		t.Fatalf("expire: %v", err)
	}
	if !h.repo.jobs[result.Job.ID].IsAssignedTo(2) {
		t.Fatalf("expected timeout to reassign to fixer 2")
	}
}

func TestCompleteDeductsFeeAndStartsRating(t *testing.T) {
	h := newHarness(testConfig{mode: config.DispatchImmediate, maxReassignments: 3}, fixer(1, "Thabo"))
	ctx := context.Background()
	result, _ := h.svc.CreateAndDispatch(ctx, request())

	if _, err := h.svc.Complete(ctx, result.Job.ID, 1); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict before acceptance, got %v", err)
	}
	if _, err := h.svc.Accept(ctx, result.Job.ID, 1); err != nil {
		t.Fatalf("accept: %v", err)
	}

	done, err := h.svc.Complete(ctx, result.Job.ID, 1)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != domain.JobComplete || done.FixerFeeStatus != domain.FixerFeeDeducted || done.CompletedAt == nil {
		t.Fatalf("unexpected completed job %+v", done)
	}
	if h.fixers.deducted[1] != 5000 {
		t.Fatalf("expected platform fee deducted, got %d", h.fixers.deducted[1])
	}
	if len(h.ratings.calls) != 1 || h.ratings.calls[0] != [2]int64{7, result.Job.ID} {
		t.Fatalf("expected rating to begin for client 7, got %v", h.ratings.calls)
	}
}

func TestCompleteLocksClientBeforeJobAndFixer(t *testing.T) {
	h := newHarness(testConfig{mode: config.DispatchImmediate, maxReassignments: 3}, fixer(1, "Thabo"))
	ctx := context.Background()
	result, _ := h.svc.CreateAndDispatch(ctx, request())
	if _, err := h.svc.Accept(ctx, result.Job.ID, 1); err != nil {
		t.Fatalf("accept: %v", err)
	}

	h.locks.order = nil
	if _, err := h.svc.Complete(ctx, result.Job.ID, 1); err != nil {
		t.Fatalf("complete: %v", err)
	}
	want := []string{"client", "job", "fixer"}
	if strings.Join(h.locks.order, ",") != strings.Join(want, ",") {
		t.Fatalf("expected lock order %v, got %v", want, h.locks.order)
	}
}

func TestCompleteRollsBackEventsWhenRatingFails(t *testing.T) {
	h := newHarness(testConfig{mode: config.DispatchImmediate, maxReassignments: 3}, fixer(1, "Thabo"))
	ctx := context.Background()
	result, _ := h.svc.CreateAndDispatch(ctx, request())
	if _, err := h.svc.Accept(ctx, result.Job.ID, 1); err != nil {
		t.Fatalf("accept: %v", err)
	}
	before := len(h.bus.published)
	h.ratings.err = errors.New("client row locked")

	if _, err := h.svc.Complete(ctx, result.Job.ID, 1); err == nil {
		t.Fatalf("expected error")
	}
	if len(h.bus.published) != before {
		t.Fatalf("no completion event may be published when the transaction fails")
	}
}

func TestCancelClearsFixerAndRejectsTerminal(t *testing.T) {
	h := newHarness(testConfig{mode: config.DispatchImmediate, maxReassignments: 3}, fixer(1, "Thabo"))
	ctx := context.Background()
	result, _ := h.svc.CreateAndDispatch(ctx, request())

	cancelled, err := h.svc.Cancel(ctx, result.Job.ID, "")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != domain.JobCancelled || cancelled.FixerID != nil || cancelled.CancelledAt == nil {
		t.Fatalf("unexpected cancelled job %+v", cancelled)
	}
	event := h.bus.published[len(h.bus.published)-1].(events.JobCancelled)
	if event.FixerPhone == nil {
		t.Fatalf("expected previous fixer to be notified")
	}

	if _, err := h.svc.Cancel(ctx, result.Job.ID, "again"); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestPaymentFailureCancelsJob(t *testing.T) {
	h := newHarness(testConfig{mode: config.DispatchAfterPayment, maxReassignments: 3})
	ctx := context.Background()
	result, _ := h.svc.CreateAndDispatch(ctx, request())

	job, err := h.svc.MarkPaymentFailed(ctx, result.Job.ID, domain.PaymentCancelled)
	if err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if job.Status != domain.JobCancelled || job.PaymentStatus != domain.PaymentCancelled {
		t.Fatalf("unexpected job %s/%s", job.Status, job.PaymentStatus)
	}
	if _, err := h.svc.MarkPaid(ctx, result.Job.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict paying a cancelled job, got %v", err)
	}
}

func TestAssignManuallyOnlyForUnassignedJobs(t *testing.T) {
	h := newHarness(testConfig{mode: config.DispatchImmediate, maxReassignments: 3})
	ctx := context.Background()
	result, _ := h.svc.CreateAndDispatch(ctx, request())

	h.matcher.pool = []domain.Fixer{fixer(4, "Naledi")}
	h.fixers.byID[4] = fixer(4, "Naledi")

	job, err := h.svc.AssignManually(ctx, result.Job.ID, 4)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if !job.IsAssignedTo(4) || job.Status != domain.JobAssigned {
		t.Fatalf("expected manual assignment, got %+v", job)
	}
	if _, err := h.svc.AssignManually(ctx, result.Job.ID, 4); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict on assigned job, got %v", err)
	}
}

func TestRecordRatingAndFeedback(t *testing.T) {
	h := newHarness(testConfig{mode: config.DispatchImmediate, maxReassignments: 3}, fixer(1, "Thabo"))
	ctx := context.Background()
	result, _ := h.svc.CreateAndDispatch(ctx, request())

	if err := h.svc.RecordRating(ctx, 7, result.Job.ID, 5); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict rating an open job, got %v", err)
	}
	_, _ = h.svc.Accept(ctx, result.Job.ID, 1)
	_, _ = h.svc.Complete(ctx, result.Job.ID, 1)

	if err := h.svc.RecordRating(ctx, 7, result.Job.ID, 6); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := h.svc.RecordRating(ctx, 8, result.Job.ID, 4); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for another client, got %v", err)
	}
	if err := h.svc.RecordRating(ctx, 7, result.Job.ID, 4); err != nil {
		t.Fatalf("rating: %v", err)
	}
	if err := h.svc.RecordFeedback(ctx, 7, result.Job.ID, "Very <b>quick</b> service", ""); err != nil {
		t.Fatalf("feedback: %v", err)
	}

	job := h.repo.jobs[result.Job.ID]
	if job.Rating == nil || *job.Rating != 4 {
		t.Fatalf("expected rating 4")
	}
	if job.RatingComment == nil || *job.RatingComment != "Very quick service" {
		t.Fatalf("unexpected comment %v", job.RatingComment)
	}
	if job.Sentiment == nil || *job.Sentiment != domain.SentimentUnknown {
		t.Fatalf("expected Unknown sentiment when none was provided")
	}
}
