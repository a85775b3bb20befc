package models

import "time"

type SyncOutcome string

const (
	OutcomeCreated SyncOutcome = "created"
	OutcomeUpdated SyncOutcome = "updated"
	OutcomeSkipped SyncOutcome = "skipped"
	OutcomeError   SyncOutcome = "error"
)

// SyncItemResult is the outcome for one external entity within a run.
type SyncItemResult struct {
	ExternalID int64                  `json:"external_id"`
	Outcome    SyncOutcome            `json:"outcome"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// SyncResult is produced once per sync run. A run that had item failures
// still produces a result; the caller inspects Errors to tell the two apart.
type SyncResult struct {
	Total    int              `json:"total"`
	Created  int              `json:"created"`
	Updated  int              `json:"updated"`
	Skipped  int              `json:"skipped"`
	Errors   int              `json:"errors"`
	Duration time.Duration    `json:"duration"`
	Items    []SyncItemResult `json:"items"`
}

// Tally recomputes the aggregate counts from the item list. Counts are
// never incremented alongside the items, so the two cannot drift.
func (r *SyncResult) Tally() {
	r.Created, r.Updated, r.Skipped, r.Errors = 0, 0, 0, 0
	for _, item := range r.Items {
		switch item.Outcome {
		case OutcomeCreated:
			r.Created++
		case OutcomeUpdated:
			r.Updated++
		case OutcomeSkipped:
			r.Skipped++
		case OutcomeError:
			r.Errors++
		}
	}
}
