// Package worker implements the import worker: the asynq task handler
// that streams a staged CSV, validates and de-duplicates rows,
// batches writes into customers under the job's mode, accumulates an
// error report, and advances the job's state machine. This is the
// algorithmic core of the ingestion service.
package worker

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/customer-ingest/internal/apperr"
	"github.com/customer-ingest/internal/config"
	"github.com/customer-ingest/internal/errorreport"
	"github.com/customer-ingest/internal/models"
	"github.com/customer-ingest/internal/repository"
	"github.com/customer-ingest/internal/validation"
	"github.com/rs/zerolog"
)

// headSummaryLimit is the number of messages kept for the job's short
// "error" summary field; the full report is unbounded.
const headSummaryLimit = 3

// ObjectStore is the narrow subset of the object store gateway the
// worker needs: downloading the staged upload and uploading the
// error report.
type ObjectStore interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	PutBytes(ctx context.Context, data []byte, filename string) (string, error)
}

// Worker drives one process_import task end to end.
type Worker struct {
	jobs      repository.JobRepository
	customers repository.CustomerRepository
	store     ObjectStore
	cfg       config.ImportConfig
	log       zerolog.Logger
}

func New(jobs repository.JobRepository, customers repository.CustomerRepository, store ObjectStore, cfg config.ImportConfig, log zerolog.Logger) *Worker {
	return &Worker{
		jobs:      jobs,
		customers: customers,
		store:     store,
		cfg:       cfg,
		log:       log.With().Str("component", "worker").Logger(),
	}
}

// Process is the asynq handler entry point for job_id.
func (w *Worker) Process(ctx context.Context, jobID string) error {
	job, err := w.jobs.Get(ctx, jobID)
	if err != nil {
		return apperr.Database(err)
	}
	if job == nil {
		w.log.Warn().Str("job_id", jobID).Msg("job not found, dropping task")
		return nil
	}

	matched, err := w.jobs.MarkProcessing(ctx, jobID)
	if err != nil {
		return apperr.Database(err)
	}
	if !matched {
		w.log.Warn().Str("job_id", jobID).Str("status", string(job.Status)).
			Msg("redelivered or stale task found job not pending, no-op")
		return nil
	}

	if err := w.run(ctx, job); err != nil {
		var appErr *apperr.Error
		summary := err.Error()
		if apperr.As(err, &appErr) {
			summary = appErr.Summary()
		}
		w.finalizeFatal(ctx, job.ID, summary)
		w.log.Error().Err(err).Str("job_id", job.ID).Msg("import job failed fatally")
		return nil // fatal is terminal; do not ask asynq to retry a job already marked failed
	}
	return nil
}

func (w *Worker) finalizeFatal(ctx context.Context, jobID, summary string) {
	status := models.JobStatusFailed
	if err := w.jobs.Update(ctx, jobID, repository.JobUpdate{
		Status: &status,
		Error:  &summary,
	}); err != nil {
		w.log.Error().Err(err).Str("job_id", jobID).Msg("failed to persist fatal failure")
	}
}

func (w *Worker) run(ctx context.Context, job *models.ImportJob) error {
	raw, err := w.store.GetBytes(ctx, job.S3Key)
	if err != nil {
		return err
	}

	records, err := decodeCSV(raw)
	if err != nil {
		return apperr.Batch(err)
	}

	var dataRows [][]string
	if len(records) > 0 {
		dataRows = records[1:] // discard header
	}
	totalRows := len(dataRows)

	if err := w.jobs.Update(ctx, job.ID, repository.JobUpdate{
		TotalRows:     &totalRows,
		ProcessedRows: intPtr(0),
	}); err != nil {
		return apperr.Database(err)
	}

	flush, err := flusherFor(job.Mode)
	if err != nil {
		return apperr.Batch(err)
	}

	var (
		batch       []*models.CustomerPayload
		seenInFile  = make(map[string]bool)
		errorRows   []models.ErrorRow
		headSummary []string
		processed   int
	)

	addError := func(row int, message, raw string) {
		errorRows = append(errorRows, models.ErrorRow{Row: row, Error: message, Raw: raw})
		if len(headSummary) < headSummaryLimit {
			headSummary = append(headSummary, message)
		}
	}

	flushBatch := func() error {
		if len(batch) == 0 {
			return nil
		}
		result, err := flush(ctx, w.customers, batch)
		if err != nil {
			return apperr.Batch(err)
		}
		for _, e := range result.conflicts {
			addError(e.Row, e.Error, e.Raw)
		}
		batch = batch[:0]
		return nil
	}

	for i, record := range dataRows {
		row := i + 1
		processed++

		if w.cfg.SlowMs > 0 {
			time.Sleep(time.Duration(w.cfg.SlowMs) * time.Millisecond)
		}

		if validation.IsEmptyRecord(record) {
			addError(row, fmt.Sprintf("row %d: empty row", row), rawJoin(record))
		} else {
			payload, rowErr := normalizeRow(row, record)
			if rowErr != "" {
				addError(row, rowErr, rawJoin(record))
			} else if seenInFile[payload.Email] {
				addError(row, fmt.Sprintf("row %d: duplicate email %q in file", row, payload.Email), payload.Raw)
			} else {
				seenInFile[payload.Email] = true
				batch = append(batch, payload)
			}
		}

		if len(batch) >= w.cfg.BatchSize {
			if err := flushBatch(); err != nil {
				return err
			}
		}

		if w.cfg.ProgressEvery > 0 && processed%w.cfg.ProgressEvery == 0 {
			p := processed
			if err := w.jobs.Update(ctx, job.ID, repository.JobUpdate{ProcessedRows: &p}); err != nil {
				return apperr.Database(err)
			}
		}

		select {
		case <-ctx.Done():
			return apperr.Database(ctx.Err())
		default:
		}
	}

	if err := flushBatch(); err != nil {
		return err
	}

	return w.finalize(ctx, job.ID, totalRows, errorRows, headSummary)
}

func (w *Worker) finalize(ctx context.Context, jobID string, totalRows int, errorRows []models.ErrorRow, headSummary []string) error {
	errorCount := len(errorRows)

	if errorCount == 0 {
		status := models.JobStatusDone
		processed := totalRows
		return wrapDB(w.jobs.Update(ctx, jobID, repository.JobUpdate{
			Status:        &status,
			ProcessedRows: &processed,
			ClearError:    true,
			ErrorCount:    intPtr(0),
		}))
	}

	report, err := errorreport.Build(errorRows)
	if err != nil {
		return apperr.Batch(err)
	}

	filename := errorreport.ObjectKey(jobID)
	key, err := w.store.PutBytes(ctx, report, filename)
	if err != nil {
		return err
	}

	status := models.JobStatusFailed
	processed := totalRows
	summary := summarize(errorCount, headSummary)

	return wrapDB(w.jobs.Update(ctx, jobID, repository.JobUpdate{
		Status:               &status,
		ProcessedRows:        &processed,
		Error:                &summary,
		ErrorReportObjectKey: &key,
		ErrorCount:           &errorCount,
	}))
}

func summarize(count int, head []string) string {
	joined := strings.Join(head, " | ")
	if count > headSummaryLimit {
		return fmt.Sprintf("errors: %d; first: %s [...]", count, joined)
	}
	return fmt.Sprintf("errors: %d; first: %s", count, joined)
}

func wrapDB(err error) error {
	if err == nil {
		return nil
	}
	return apperr.Database(err)
}

func intPtr(v int) *int { return &v }

// decodeCSV tolerates a BOM and replaces invalid byte sequences
// rather than rejecting the file.
func decodeCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	clean := strings.ToValidUTF8(string(data), "�")

	reader := csv.NewReader(strings.NewReader(clean))
	reader.FieldsPerRecord = -1

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func rawJoin(record []string) string {
	return strings.Join(record, ",")
}

// normalizeRow maps positional columns email,first_name,last_name,phone,city,
// normalizes whitespace, and validates the email. Missing trailing
// columns are absent; extra columns are ignored.
func normalizeRow(row int, record []string) (*models.CustomerPayload, string) {
	cell := func(idx int) *string {
		if idx >= len(record) {
			return nil
		}
		return validation.NormalizeCell(record[idx])
	}

	emailPtr := cell(0)
	if emailPtr == nil {
		return nil, fmt.Sprintf("row %d: empty email", row)
	}
	email := *emailPtr
	if !validation.IsValidEmail(email) {
		return nil, fmt.Sprintf("row %d: invalid email %q", row, email)
	}

	return &models.CustomerPayload{
		Row:       row,
		Email:     email,
		FirstName: cell(1),
		LastName:  cell(2),
		Phone:     cell(3),
		City:      cell(4),
		Raw:       rawJoin(record),
	}, ""
}

// flushResult carries in-database conflicts discovered at flush time,
// for insert_only.
type flushResult struct {
	conflicts []models.ErrorRow
}

// flushFunc is the narrow contract both mode flushers implement,
// selected once at worker start (mode is a sum type, not dispatched
// per-row).
type flushFunc func(ctx context.Context, repo repository.CustomerRepository, batch []*models.CustomerPayload) (flushResult, error)

func flusherFor(mode models.ImportMode) (flushFunc, error) {
	switch mode {
	case models.ModeInsertOnly:
		return insertOnlyFlush, nil
	case models.ModeUpsert:
		return upsertFlush, nil
	default:
		return nil, fmt.Errorf("unknown import mode %q", mode)
	}
}

func insertOnlyFlush(ctx context.Context, repo repository.CustomerRepository, batch []*models.CustomerPayload) (flushResult, error) {
	emails := make([]string, len(batch))
	for i, p := range batch {
		emails[i] = p.Email
	}

	existing, err := repo.FindExistingEmails(ctx, emails)
	if err != nil {
		return flushResult{}, err
	}

	var result flushResult
	remaining := batch[:0:0]
	for _, p := range batch {
		if existing[p.Email] {
			result.conflicts = append(result.conflicts, models.ErrorRow{
				Row:   p.Row,
				Error: fmt.Sprintf("row %d: email already exists %q", p.Row, p.Email),
				Raw:   p.Raw,
			})
			continue
		}
		remaining = append(remaining, p)
	}

	if _, err := repo.BatchInsert(ctx, remaining); err != nil {
		return flushResult{}, err
	}
	return result, nil
}

func upsertFlush(ctx context.Context, repo repository.CustomerRepository, batch []*models.CustomerPayload) (flushResult, error) {
	if _, err := repo.Upsert(ctx, batch); err != nil {
		return flushResult{}, err
	}
	return flushResult{}, nil
}
