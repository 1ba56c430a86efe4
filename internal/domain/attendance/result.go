package attendance

type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeRemoved   Outcome = "removed"
	OutcomeFailed    Outcome = "failed"
)

// Result is the outcome of reconciling one employee/date: either a record
// with its outcome, or an error.
type Result struct {
	Record  *Record
	Outcome Outcome
	Err     *RecordError

	// Anomalies counts anomalies first detected while producing this result.
	Anomalies int
}

func Ok(rec Record, outcome Outcome) Result {
	return Result{Record: &rec, Outcome: outcome}
}

func Skipped() Result {
	return Result{Outcome: OutcomeSkipped}
}

func Removed() Result {
	return Result{Outcome: OutcomeRemoved}
}

func Failed(err RecordError) Result {
	return Result{Outcome: OutcomeFailed, Err: &err}
}

// IsOk reports whether the result carries no error.
func (r Result) IsOk() bool {
	return r.Err == nil
}

// BatchReport aggregates per-record results of a bulk run.
type BatchReport struct {
	Total     int           `json:"total"`
	Created   int           `json:"created"`
	Updated   int           `json:"updated"`
	Unchanged int           `json:"unchanged"`
	Skipped   int           `json:"skipped"`
	Removed   int           `json:"removed"`
	Failed    int           `json:"failed"`
	Anomalies int           `json:"anomalies_detected"`
	Errors    []RecordError `json:"errors,omitempty"`
}

// Add folds one result into the report.
func (b *BatchReport) Add(r Result) {
	b.Total++
	b.Anomalies += r.Anomalies
	switch r.Outcome {
	case OutcomeCreated:
		b.Created++
	case OutcomeUpdated:
		b.Updated++
	case OutcomeUnchanged:
		b.Unchanged++
	case OutcomeSkipped:
		b.Skipped++
	case OutcomeRemoved:
		b.Removed++
	case OutcomeFailed:
		b.Failed++
		if r.Err != nil {
			b.Errors = append(b.Errors, *r.Err)
		}
	}
}

// Merge folds another report into b.
func (b *BatchReport) Merge(o BatchReport) {
	b.Total += o.Total
	b.Created += o.Created
	b.Updated += o.Updated
	b.Unchanged += o.Unchanged
	b.Skipped += o.Skipped
	b.Removed += o.Removed
	b.Anomalies += o.Anomalies
	b.Failed += o.Failed
	b.Errors = append(b.Errors, o.Errors...)
}

// Processed counts the records that were written, removed or confirmed unchanged.
func (b BatchReport) Processed() int {
	return b.Created + b.Updated + b.Unchanged + b.Removed
}
