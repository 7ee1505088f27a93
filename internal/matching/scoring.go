// Package matching ranks candidate fixers for a job and reserves the winner.
package matching

import (
	"math"
	"sort"
	"strings"
	"time"

	"fixmate_backend/internal/domain"
	"fixmate_backend/platform/geo"
)

const (
	MaxProximityScore  = 50.0
	ProximityPerKm     = 2.0
	MaxReputationScore = 30.0
	MaxFairnessScore   = 20.0

	// DefaultAverageRating stands in for fixers with no rated jobs.
	DefaultAverageRating = 3.5

	maxRating    = 5.0
	generalSkill = "general"
)

// Candidate is a fixer together with the average rating of their rated jobs.
type Candidate struct {
	Fixer         domain.Fixer
	AverageRating *float64
}

// Score is the composite suitability of one candidate.
type Score struct {
	FixerID    int64
	DistanceKm *float64
	Proximity  float64
	Reputation float64
	Fairness   float64
	Total      float64
}

// Ranked pairs a candidate with its score.
type Ranked struct {
	Candidate Candidate
	Score     Score
}

// Eligible keeps active, approved fixers whose skills name the category.
// When no specialist exists it falls back to fixers listing "general".
func Eligible(pool []Candidate, category domain.Category) []Candidate {
	approved := make([]Candidate, 0, len(pool))
	for _, c := range pool {
		if c.Fixer.IsEligible() {
			approved = append(approved, c)
		}
	}

	specialists := withSkill(approved, string(category))
	if len(specialists) > 0 {
		return specialists
	}
	return withSkill(approved, generalSkill)
}

func withSkill(pool []Candidate, skill string) []Candidate {
	skill = strings.ToLower(skill)
	out := make([]Candidate, 0, len(pool))
	for _, c := range pool {
		if strings.Contains(strings.ToLower(c.Fixer.Skills), skill) {
			out = append(out, c)
		}
	}
	return out
}

// ProximityScore is max(0, 50 - 2*km), or 0 when either location is unknown.
func ProximityScore(job, fixer *geo.Point) float64 {
	if job == nil || fixer == nil {
		return 0
	}
	return proximityForDistance(geo.DistanceKm(*job, *fixer))
}

func proximityForDistance(km float64) float64 {
	return math.Max(0, MaxProximityScore-ProximityPerKm*km)
}

// ReputationScore scales the average rating to 0-30.
func ReputationScore(average *float64) float64 {
	avg := DefaultAverageRating
	if average != nil {
		avg = *average
	}
	avg = math.Min(math.Max(avg, 0), maxRating)
	return avg * MaxReputationScore / maxRating
}

// FairnessScore awards one point per idle hour up to 20. Fixers that were
// never assigned get the full 20.
func FairnessScore(lastAssignedAt *time.Time, now time.Time) float64 {
	if lastAssignedAt == nil {
		return MaxFairnessScore
	}
	hours := now.Sub(*lastAssignedAt).Hours()
	return math.Min(MaxFairnessScore, math.Max(0, hours))
}

// ScoreCandidate computes all sub-scores for c against job.
func ScoreCandidate(job domain.Job, c Candidate, now time.Time) Score {
	score := Score{FixerID: c.Fixer.ID}

	jobPoint, fixerPoint := job.Location(), c.Fixer.Location()
	if jobPoint != nil && fixerPoint != nil {
		km := geo.DistanceKm(*jobPoint, *fixerPoint)
		score.DistanceKm = &km
		score.Proximity = proximityForDistance(km)
	}
	score.Reputation = ReputationScore(c.AverageRating)
	score.Fairness = FairnessScore(c.Fixer.LastAssignedAt, now)
	score.Total = score.Proximity + score.Reputation + score.Fairness
	return score
}

// Rank filters pool to eligible fixers and orders them by total score, highest
// first. Equal totals are ordered by lowest fixer id.
func Rank(job domain.Job, pool []Candidate, now time.Time) []Ranked {
	eligible := Eligible(pool, job.Category)
	ranked := make([]Ranked, 0, len(eligible))
	for _, c := range eligible {
		ranked = append(ranked, Ranked{Candidate: c, Score: ScoreCandidate(job, c, now)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score.Total != ranked[j].Score.Total {
			return ranked[i].Score.Total > ranked[j].Score.Total
		}
		return ranked[i].Candidate.Fixer.ID < ranked[j].Candidate.Fixer.ID
	})
	return ranked
}

// Best returns the top ranked candidate, or nil when none is eligible.
func Best(job domain.Job, pool []Candidate, now time.Time) *Ranked {
	ranked := Rank(job, pool, now)
	if len(ranked) == 0 {
		return nil
	}
	return &ranked[0]
}
