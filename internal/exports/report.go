package exports

import (
	"sort"
	"strconv"
	"time"

	"fixmate_backend/internal/domain"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
)

var jobColumns = []string{
	"Job ID", "Created", "Client ID", "Fixer ID", "Category", "Status",
	"Payment", "Fixer fee", "Amount (R)", "Rating", "Sentiment",
	"Accepted", "Completed", "Cancelled", "Latitude", "Longitude", "Description",
}

// Report is a period of jobs with its aggregates.
type Report struct {
	From, To *time.Time
	Jobs     []domain.Job
}

// Summary aggregates a report.
type Summary struct {
	Total          int
	ByStatus       map[domain.JobStatus]int
	ByCategory     map[domain.Category]int
	PaidCents      int64
	CompletedCount int
	RatedCount     int
	AverageRating  float64
}

func (r Report) Summary() Summary {
	s := Summary{
		Total:      len(r.Jobs),
		ByStatus:   make(map[domain.JobStatus]int),
		ByCategory: make(map[domain.Category]int),
	}
	ratingSum := 0
	for _, job := range r.Jobs {
		s.ByStatus[job.Status]++
		s.ByCategory[job.Category]++
		if job.PaymentStatus == domain.PaymentPaid {
			s.PaidCents += job.AmountCents
		}
		if job.Status == domain.JobComplete {
			s.CompletedCount++
		}
		if job.Rating != nil {
			s.RatedCount++
			ratingSum += *job.Rating
		}
	}
	if s.RatedCount > 0 {
		s.AverageRating = float64(ratingSum) / float64(s.RatedCount)
	}
	return s
}

// PeriodLabel describes the report window for titles and filenames.
func (r Report) PeriodLabel() string {
	from, to := "start", "now"
	if r.From != nil {
		from = r.From.Format(dateLayout)
	}
	if r.To != nil {
		to = r.To.Format(dateLayout)
	}
	return from + "_" + to
}

// row renders a job as string cells, in jobColumns order.
func row(job domain.Job) []string {
	return []string{
		strconv.FormatInt(job.ID, 10),
		job.CreatedAt.UTC().Format(dateTimeLayout),
		strconv.FormatInt(job.ClientID, 10),
		formatInt64Ptr(job.FixerID),
		job.Category.String(),
		string(job.Status),
		string(job.PaymentStatus),
		string(job.FixerFeeStatus),
		formatRand(job.AmountCents),
		formatIntPtr(job.Rating),
		formatStringPtr(job.Sentiment),
		formatTimePtr(job.AcceptedAt),
		formatTimePtr(job.CompletedAt),
		formatTimePtr(job.CancelledAt),
		formatFloatPtr(job.Latitude),
		formatFloatPtr(job.Longitude),
		job.Description,
	}
}

func sortedKeys[K ~string](m map[K]int) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func formatRand(cents int64) string {
	return strconv.FormatFloat(float64(cents)/100, 'f', 2, 64)
}

func formatInt64Ptr(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func formatIntPtr(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatStringPtr(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatTimePtr(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.UTC().Format(dateTimeLayout)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 6, 64)
}
