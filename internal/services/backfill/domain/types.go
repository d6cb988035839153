// Package domain holds the core types and ports for the backfill engine
package domain

import (
	"sort"
	"time"
)

// JobStatus is the lifecycle of one backfill job
type JobStatus string

const (
	// JobRunning means the day loop has work left
	JobRunning JobStatus = "running"

	// JobComplete means every day in range is accounted for
	JobComplete JobStatus = "complete"

	// JobError means the job hit a permanent failure and stopped
	JobError JobStatus = "error"
)

// JobErrorEntry is one retained failure record
type JobErrorEntry struct {
	At      time.Time `json:"at"`
	Day     string    `json:"day,omitempty"`
	Message string    `json:"message"`
}

// Job is the full persisted state of one backfill. It is written atomically
// to the coordination store after every tick so any instance can resume from
// (CurrentDate, CurrentCursor).
type Job struct {
	ID   string `json:"id"`
	Site string `json:"site"`

	// StartDate/EndDate bound the inclusive day range (YYYY-MM-DD, UTC)
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`

	// CurrentDate is the day the cursor walk is parked on
	CurrentDate string `json:"current_date"`

	// CurrentCursor is the opaque upstream pagination token for CurrentDate
	CurrentCursor string `json:"current_cursor,omitempty"`

	// CompletedDates is a set: duplicate completions are no-ops
	CompletedDates map[string]bool `json:"completed_dates"`

	// EmptyDates records days deliberately marked empty after repeated
	// empty first pages; they count toward progress but never as completed
	EmptyDates map[string]bool `json:"empty_dates,omitempty"`

	// EmptyRetries counts consecutive empty first pages per day
	EmptyRetries map[string]int `json:"empty_retries,omitempty"`

	SamplesFetched int64           `json:"samples_fetched"`
	Errors         []JobErrorEntry `json:"errors,omitempty"`
	Status         JobStatus       `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TotalDays is the inclusive day count of the range; zero on a malformed job
func (j *Job) TotalDays() int {
	s, err1 := time.ParseInLocation("2006-01-02", j.StartDate, time.UTC)
	e, err2 := time.ParseInLocation("2006-01-02", j.EndDate, time.UTC)
	if err1 != nil || err2 != nil || e.Before(s) {
		return 0
	}
	return int(e.Sub(s).Hours()/24) + 1
}

// DoneDays counts days accounted for (completed or deliberately empty)
func (j *Job) DoneDays() int { return len(j.CompletedDates) + len(j.EmptyDates) }

// PercentComplete is |done| / total, set semantics
func (j *Job) PercentComplete() float64 {
	total := j.TotalDays()
	if total == 0 {
		return 0
	}
	return float64(j.DoneDays()) / float64(total) * 100
}

// MarkCompleted adds day to the set; idempotent
func (j *Job) MarkCompleted(day string) {
	if j.CompletedDates == nil {
		j.CompletedDates = map[string]bool{}
	}
	j.CompletedDates[day] = true
	delete(j.EmptyRetries, day)
}

// MarkEmpty records a deliberate empty-day marker; idempotent
func (j *Job) MarkEmpty(day string) {
	if j.EmptyDates == nil {
		j.EmptyDates = map[string]bool{}
	}
	j.EmptyDates[day] = true
	delete(j.EmptyRetries, day)
}

// RecordError appends to the bounded error log (last 50 kept)
func (j *Job) RecordError(now time.Time, day, msg string) {
	j.Errors = append(j.Errors, JobErrorEntry{At: now.UTC(), Day: day, Message: msg})
	if len(j.Errors) > 50 {
		j.Errors = j.Errors[len(j.Errors)-50:]
	}
}

// Progress is the status snapshot served over HTTP
type Progress struct {
	JobID           string          `json:"job_id"`
	Site            string          `json:"site"`
	Status          JobStatus       `json:"status"`
	StartDate       string          `json:"start_date"`
	EndDate         string          `json:"end_date"`
	CurrentDate     string          `json:"current_date"`
	TotalDays       int             `json:"total_days"`
	CompletedDates  []string        `json:"completed_dates"`
	EmptyDates      []string        `json:"empty_dates,omitempty"`
	PercentComplete float64         `json:"percent_complete"`
	SamplesFetched  int64           `json:"samples_fetched"`
	Errors          []JobErrorEntry `json:"errors,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Snapshot renders the job into a Progress payload with sorted day lists
func (j *Job) Snapshot() Progress {
	return Progress{
		JobID:           j.ID,
		Site:            j.Site,
		Status:          j.Status,
		StartDate:       j.StartDate,
		EndDate:         j.EndDate,
		CurrentDate:     j.CurrentDate,
		TotalDays:       j.TotalDays(),
		CompletedDates:  sortedKeys(j.CompletedDates),
		EmptyDates:      sortedKeys(j.EmptyDates),
		PercentComplete: j.PercentComplete(),
		SamplesFetched:  j.SamplesFetched,
		Errors:          j.Errors,
		UpdatedAt:       j.UpdatedAt,
	}
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// TickResult reports one tick invocation
type TickResult struct {
	JobID          string    `json:"job_id"`
	PagesProcessed int       `json:"pages_processed"`
	SamplesFetched int64     `json:"samples_fetched"`
	DaysCompleted  int       `json:"days_completed"`
	Status         JobStatus `json:"status"`

	// Idle is set when no running job exists
	Idle bool `json:"idle,omitempty"`
}
