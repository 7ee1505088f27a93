package matching

import (
	"math"
	"testing"
	"time"

	"fixmate_backend/internal/domain"
	"fixmate_backend/platform/geo"
)

func ptr[T any](v T) *T { return &v }

func approved(id int64, skills string) Candidate {
	return Candidate{Fixer: domain.Fixer{
		ID:            id,
		Skills:        skills,
		IsActive:      true,
		VettingStatus: domain.VettingApproved,
	}}
}

func TestEligiblePrefersSpecialists(t *testing.T) {
	pool := []Candidate{
		approved(1, "general"),
		approved(2, "Plumbing, tiling"),
		approved(3, "electrical"),
	}
	got := Eligible(pool, domain.CategoryPlumbing)
	if len(got) != 1 || got[0].Fixer.ID != 2 {
		t.Fatalf("expected only the plumbing specialist, got %+v", got)
	}
}

func TestEligibleFallsBackToGeneral(t *testing.T) {
	pool := []Candidate{approved(1, "general handyman"), approved(3, "electrical")}
	got := Eligible(pool, domain.CategoryPlumbing)
	if len(got) != 1 || got[0].Fixer.ID != 1 {
		t.Fatalf("expected general fallback, got %+v", got)
	}
}

func TestEligibleSkipsInactiveAndUnapproved(t *testing.T) {
	inactive := approved(1, "plumbing")
	inactive.Fixer.IsActive = false
	pending := approved(2, "plumbing")
	pending.Fixer.VettingStatus = domain.VettingPendingReview
	rejected := approved(3, "plumbing")
	rejected.Fixer.VettingStatus = domain.VettingRejected

	if got := Eligible([]Candidate{inactive, pending, rejected}, domain.CategoryPlumbing); len(got) != 0 {
		t.Fatalf("expected no eligible fixers, got %+v", got)
	}
}

func TestBestOnEmptyPoolReturnsNil(t *testing.T) {
	if got := Best(domain.Job{Category: domain.CategoryPlumbing}, nil, time.Now()); got != nil {
		t.Fatalf("expected nil for empty pool, got %+v", got)
	}
	onlyElectrical := []Candidate{approved(1, "electrical")}
	if got := Best(domain.Job{Category: domain.CategoryPlumbing}, onlyElectrical, time.Now()); got != nil {
		t.Fatalf("expected nil when no specialist or general fixer exists")
	}
}

func TestProximityScoreClampedAndMonotonic(t *testing.T) {
	job := geo.Point{Lat: -26.2041, Lon: 28.0473}
	if got := ProximityScore(&job, &job); got != MaxProximityScore {
		t.Fatalf("expected 50 at the job site, got %v", got)
	}
	if got := ProximityScore(nil, &job); got != 0 {
		t.Fatalf("expected 0 with unknown job location, got %v", got)
	}
	if got := ProximityScore(&job, nil); got != 0 {
		t.Fatalf("expected 0 with unknown fixer location, got %v", got)
	}

	previous := math.Inf(1)
	for step := 0; step <= 40; step++ {
		fixer := geo.Point{Lat: job.Lat + float64(step)*0.02, Lon: job.Lon}
		score := ProximityScore(&job, &fixer)
		if score < 0 || score > MaxProximityScore {
			t.Fatalf("score %v outside [0,50]", score)
		}
		if score > previous {
			t.Fatalf("score increased with distance at step %d", step)
		}
		previous = score
	}
	if previous != 0 {
		t.Fatalf("expected 0 beyond 25km, got %v", previous)
	}
}

func TestReputationScore(t *testing.T) {
	if got := ReputationScore(nil); got != 21 {
		t.Fatalf("expected neutral default 21, got %v", got)
	}
	if got := ReputationScore(ptr(5.0)); got != 30 {
		t.Fatalf("expected 30 for a perfect average, got %v", got)
	}
	if got := ReputationScore(ptr(1.0)); got != 6 {
		t.Fatalf("expected 6 for a 1-star average, got %v", got)
	}
}

func TestFairnessScore(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	if got := FairnessScore(nil, now); got != MaxFairnessScore {
		t.Fatalf("never-assigned fixer should get 20, got %v", got)
	}
	if got := FairnessScore(ptr(now.Add(-3*time.Hour)), now); got != 3 {
		t.Fatalf("expected 3 after three idle hours, got %v", got)
	}
	if got := FairnessScore(ptr(now.Add(-72*time.Hour)), now); got != MaxFairnessScore {
		t.Fatalf("expected cap of 20, got %v", got)
	}
	if got := FairnessScore(ptr(now.Add(time.Hour)), now); got != 0 {
		t.Fatalf("expected clock skew to clamp at 0, got %v", got)
	}
}

func TestNeverAssignedAlwaysMaxFairness(t *testing.T) {
	now := time.Now()
	busy := approved(1, "plumbing")
	busy.Fixer.LastAssignedAt = ptr(now.Add(-100 * time.Hour))
	fresh := approved(2, "plumbing")

	for _, r := range Rank(domain.Job{Category: domain.CategoryPlumbing}, []Candidate{busy, fresh}, now) {
		if r.Candidate.Fixer.ID == 2 && r.Score.Fairness != MaxFairnessScore {
			t.Fatalf("expected 20 for never-assigned fixer, got %v", r.Score.Fairness)
		}
	}
}

func TestRankTiesBreakByLowestID(t *testing.T) {
	pool := []Candidate{approved(9, "plumbing"), approved(4, "plumbing"), approved(7, "plumbing")}
	ranked := Rank(domain.Job{Category: domain.CategoryPlumbing}, pool, time.Now())
	if ranked[0].Candidate.Fixer.ID != 4 || ranked[1].Candidate.Fixer.ID != 7 || ranked[2].Candidate.Fixer.ID != 9 {
		t.Fatalf("expected id order on ties, got %d %d %d",
			ranked[0].Candidate.Fixer.ID, ranked[1].Candidate.Fixer.ID, ranked[2].Candidate.Fixer.ID)
	}
}

func TestJobWithoutLocationStillMatches(t *testing.T) {
	now := time.Now()
	rated := approved(1, "electrical")
	rated.AverageRating = ptr(4.8)
	rated.Fixer.Latitude, rated.Fixer.Longitude = ptr(-26.1), ptr(28.0)
	best := Best(domain.Job{Category: domain.CategoryElectrical}, []Candidate{rated}, now)
	if best == nil || best.Score.Proximity != 0 {
		t.Fatalf("expected a match with zero proximity, got %+v", best)
	}
}

func TestFreshFixerBeatsRecentlyAssignedTopRated(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	job := domain.Job{
		ID:          1,
		Description: "leaking geyser",
		Category:    domain.CategoryPlumbing,
		Latitude:    ptr(-25.7),
		Longitude:   ptr(28.2),
	}

	a := approved(1, "plumbing")
	a.Fixer.Latitude, a.Fixer.Longitude = ptr(-25.71), ptr(28.21)

	b := approved(2, "plumbing")
	b.Fixer.Latitude, b.Fixer.Longitude = ptr(-25.71), ptr(28.21)
	b.Fixer.LastAssignedAt = ptr(now.Add(-time.Hour))
	b.AverageRating = ptr(5.0)

	ranked := Rank(job, []Candidate{b, a}, now)
	if ranked[0].Candidate.Fixer.ID != 1 {
		t.Fatalf("expected fixer A to win, got %d", ranked[0].Candidate.Fixer.ID)
	}

	scoreA, scoreB := ranked[0].Score, ranked[1].Score
	if scoreA.Total < 86 || scoreA.Total > 91 {
		t.Fatalf("fixer A total %v, expected about 89", scoreA.Total)
	}
	if scoreB.Total < 76 || scoreB.Total > 81 {
		t.Fatalf("fixer B total %v, expected about 79", scoreB.Total)
	}
	if scoreA.Fairness != 20 || scoreA.Reputation != 21 {
		t.Fatalf("unexpected A sub-scores %+v", scoreA)
	}
	if math.Abs(scoreB.Fairness-1) > 1e-9 || scoreB.Reputation != 30 {
		t.Fatalf("unexpected B sub-scores %+v", scoreB)
	}
}
