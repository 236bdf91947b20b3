package domain

import "time"

// Outcome is what happened to one trip during an import run.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// TripResult reports the processing of a single trip. Err is set only when
// Outcome is OutcomeFailed.
type TripResult struct {
	Index      int
	ExternalID string
	Outcome    Outcome
	PostID     string
	Err        error
}

// ImportSummary totals one import run.
type ImportSummary struct {
	Total    int
	Created  int
	Updated  int
	Skipped  int
	Failed   int
	Duration time.Duration
}

// Add counts r into the summary.
func (s *ImportSummary) Add(r TripResult) {
	s.Total++
	switch r.Outcome {
	case OutcomeCreated:
		s.Created++
	case OutcomeUpdated:
		s.Updated++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	}
}

// Imported is the number of trips persisted, created or updated.
func (s ImportSummary) Imported() int {
	return s.Created + s.Updated
}
