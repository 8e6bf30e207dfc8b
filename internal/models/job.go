package models

import "time"

// JobStatus represents the state of an ImportJob.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusDone       JobStatus = "done"
	JobStatusFailed     JobStatus = "failed"
)

// ImportMode controls how the worker writes validated rows to customers.
type ImportMode string

const (
	ModeInsertOnly ImportMode = "insert_only"
	ModeUpsert     ImportMode = "upsert"
)

// ParseImportMode validates a mode query parameter.
func ParseImportMode(s string) (ImportMode, bool) {
	switch ImportMode(s) {
	case ModeInsertOnly, ModeUpsert:
		return ImportMode(s), true
	default:
		return "", false
	}
}

// ImportJob is a unit of bulk-ingestion work. Owned by the submission
// service at creation; from enqueue onward only the worker mutates its
// status/progress/error fields.
type ImportJob struct {
	ID                   string     `json:"id" db:"id"`
	UserID               string     `json:"-" db:"user_id"`
	IdempotencyKey       string     `json:"-" db:"idempotency_key"`
	Status               JobStatus  `json:"status" db:"status"`
	Mode                 ImportMode `json:"mode" db:"mode"`
	Filename             string     `json:"filename" db:"filename"`
	S3Key                string     `json:"-" db:"s3_key"`
	TotalRows            int        `json:"total_rows" db:"total_rows"`
	ProcessedRows        int        `json:"processed_rows" db:"processed_rows"`
	Error                *string    `json:"error" db:"error"`
	ErrorReportObjectKey *string    `json:"-" db:"error_report_object_key"`
	ErrorCount           int        `json:"-" db:"error_count"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
}

// JobDict renders the job in the exact shape the HTTP surface promises.
type JobDict struct {
	ID            string     `json:"id"`
	Status        JobStatus  `json:"status"`
	Mode          ImportMode `json:"mode"`
	Filename      string     `json:"filename"`
	TotalRows     int        `json:"total_rows"`
	ProcessedRows int        `json:"processed_rows"`
	Error         *string    `json:"error"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (j *ImportJob) ToDict() JobDict {
	return JobDict{
		ID:            j.ID,
		Status:        j.Status,
		Mode:          j.Mode,
		Filename:      j.Filename,
		TotalRows:     j.TotalRows,
		ProcessedRows: j.ProcessedRows,
		Error:         j.Error,
		CreatedAt:     j.CreatedAt,
	}
}

// IsTerminal reports whether the job has reached a state it can never
// transition out of.
func (j *ImportJob) IsTerminal() bool {
	return j.Status == JobStatusDone || j.Status == JobStatusFailed
}

// ErrorRow is the ephemeral per-row failure record the worker
// accumulates and the error-report builder serializes.
type ErrorRow struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
	Raw   string `json:"raw"`
}
