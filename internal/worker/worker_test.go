package worker

import (
	"context"
	"strings"
	"testing"

	"github.com/customer-ingest/internal/config"
	"github.com/customer-ingest/internal/mocks"
	"github.com/customer-ingest/internal/models"
	"github.com/rs/zerolog"
)

func newTestWorker(jobs *mocks.MockJobRepository, customers *mocks.MockCustomerRepository, store *mocks.MockObjectStore, cfg config.ImportConfig) *Worker {
	return New(jobs, customers, store, cfg, zerolog.Nop())
}

func seedJob(jobs *mocks.MockJobRepository, mode models.ImportMode, s3Key string) *models.ImportJob {
	job := &models.ImportJob{
		ID:     "job-1",
		UserID: "user-1",
		Status: models.JobStatusPending,
		Mode:   mode,
		S3Key:  s3Key,
	}
	jobs.Jobs[job.ID] = job
	return job
}

func defaultConfig() config.ImportConfig {
	return config.ImportConfig{BatchSize: 500, ProgressEvery: 50}
}

func TestProcessHappyPathInsertOnly(t *testing.T) {
	jobs := mocks.NewMockJobRepository()
	customers := mocks.NewMockCustomerRepository()
	store := mocks.NewMockObjectStore()

	job := seedJob(jobs, models.ModeInsertOnly, "imports/abc_customers.csv")
	store.Objects[job.S3Key] = []byte("email,first_name,last_name,phone,city\n" +
		"a@example.com,A,One,555,City\n" +
		"b@example.com,B,Two,555,City\n")

	w := newTestWorker(jobs, customers, store, defaultConfig())
	if err := w.Process(context.Background(), job.ID); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	if job.Status != models.JobStatusDone {
		t.Fatalf("expected status done, got %s", job.Status)
	}
	if job.ErrorCount != 0 || job.Error != nil {
		t.Errorf("expected no errors, got count=%d error=%v", job.ErrorCount, job.Error)
	}
	if job.TotalRows != 2 || job.ProcessedRows != 2 {
		t.Errorf("expected total=processed=2, got total=%d processed=%d", job.TotalRows, job.ProcessedRows)
	}
	if len(customers.Inserted) != 2 {
		t.Errorf("expected 2 customers inserted, got %d", len(customers.Inserted))
	}
}

func TestProcessPartialFailureInsertOnly(t *testing.T) {
	jobs := mocks.NewMockJobRepository()
	customers := mocks.NewMockCustomerRepository()
	store := mocks.NewMockObjectStore()

	job := seedJob(jobs, models.ModeInsertOnly, "imports/abc_customers.csv")
	customers.Existing["dup@x.com"] = true
	store.Objects[job.S3Key] = []byte("email,first_name,last_name,phone,city\n" +
		"dup@x.com,D,Up,555,City\n" +
		"bad_email,B,Bad,555,City\n" +
		"ok@example.com,O,Kay,555,City\n")

	w := newTestWorker(jobs, customers, store, defaultConfig())
	if err := w.Process(context.Background(), job.ID); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	if job.Status != models.JobStatusFailed {
		t.Fatalf("expected status failed, got %s", job.Status)
	}
	if job.ErrorCount != 2 {
		t.Fatalf("expected 2 errors, got %d", job.ErrorCount)
	}
	if job.ErrorReportObjectKey == nil {
		t.Fatal("expected an error report to be uploaded")
	}
	// The report is CSV, so the quotes inside each message are doubled.
	report := string(store.Objects[*job.ErrorReportObjectKey])
	if !strings.Contains(report, `email already exists ""dup@x.com""`) {
		t.Errorf("expected duplicate-email message in report, got: %s", report)
	}
	if !strings.Contains(report, `invalid email ""bad_email""`) {
		t.Errorf("expected invalid-email message in report, got: %s", report)
	}
	if len(customers.Inserted) != 1 {
		t.Errorf("expected only the valid row inserted, got %d", len(customers.Inserted))
	}
}

func TestProcessUpsertPreservesExistingRecords(t *testing.T) {
	jobs := mocks.NewMockJobRepository()
	customers := mocks.NewMockCustomerRepository()
	store := mocks.NewMockObjectStore()

	job := seedJob(jobs, models.ModeUpsert, "imports/abc_customers.csv")
	customers.Existing["existing@x.com"] = true
	store.Objects[job.S3Key] = []byte("email,first_name,last_name,phone,city\n" +
		"existing@x.com,New,Name,555,City\n")

	w := newTestWorker(jobs, customers, store, defaultConfig())
	if err := w.Process(context.Background(), job.ID); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	if job.Status != models.JobStatusDone {
		t.Fatalf("expected status done, got %s", job.Status)
	}
	if len(customers.Upserted) != 1 {
		t.Errorf("expected one upserted row, got %d", len(customers.Upserted))
	}
}

func TestProcessInFileDuplicateIsAlwaysAnError(t *testing.T) {
	jobs := mocks.NewMockJobRepository()
	customers := mocks.NewMockCustomerRepository()
	store := mocks.NewMockObjectStore()

	job := seedJob(jobs, models.ModeUpsert, "imports/abc_customers.csv")
	store.Objects[job.S3Key] = []byte("email,first_name,last_name,phone,city\n" +
		"same@x.com,A,One,555,City\n" +
		"same@x.com,B,Two,555,City\n")

	w := newTestWorker(jobs, customers, store, defaultConfig())
	if err := w.Process(context.Background(), job.ID); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	if job.ErrorCount != 1 {
		t.Fatalf("expected exactly 1 in-file duplicate error, got %d", job.ErrorCount)
	}
	if len(customers.Upserted) != 1 {
		t.Errorf("expected the first occurrence to survive to the batch, got %d", len(customers.Upserted))
	}
}

func TestProcessEmptyFileAfterHeaderIsDoneWithNoReport(t *testing.T) {
	jobs := mocks.NewMockJobRepository()
	customers := mocks.NewMockCustomerRepository()
	store := mocks.NewMockObjectStore()

	job := seedJob(jobs, models.ModeInsertOnly, "imports/abc_customers.csv")
	store.Objects[job.S3Key] = []byte("email,first_name,last_name,phone,city\n")

	w := newTestWorker(jobs, customers, store, defaultConfig())
	if err := w.Process(context.Background(), job.ID); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	if job.Status != models.JobStatusDone {
		t.Fatalf("expected status done, got %s", job.Status)
	}
	if job.TotalRows != 0 || job.ProcessedRows != 0 {
		t.Errorf("expected zero rows, got total=%d processed=%d", job.TotalRows, job.ProcessedRows)
	}
	if job.ErrorReportObjectKey != nil {
		t.Error("expected no error report for an empty import")
	}
}

func TestProcessRedeliveredTerminalJobNoOps(t *testing.T) {
	jobs := mocks.NewMockJobRepository()
	customers := mocks.NewMockCustomerRepository()
	store := mocks.NewMockObjectStore()

	job := seedJob(jobs, models.ModeInsertOnly, "imports/abc_customers.csv")
	job.Status = models.JobStatusDone

	w := newTestWorker(jobs, customers, store, defaultConfig())
	if err := w.Process(context.Background(), job.ID); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	if store.PutCalls != 0 {
		t.Error("expected a terminal job to never touch the object store")
	}
}

func TestProcessFatalStorageErrorMarksJobFailed(t *testing.T) {
	jobs := mocks.NewMockJobRepository()
	customers := mocks.NewMockCustomerRepository()
	store := mocks.NewMockObjectStore()

	job := seedJob(jobs, models.ModeInsertOnly, "imports/missing.csv")
	// S3Key intentionally not present in store.Objects, forcing ObjectMissing.

	w := newTestWorker(jobs, customers, store, defaultConfig())
	if err := w.Process(context.Background(), job.ID); err != nil {
		t.Fatalf("Process should swallow fatal errors, got: %v", err)
	}

	if job.Status != models.JobStatusFailed {
		t.Fatalf("expected status failed, got %s", job.Status)
	}
	if job.Error == nil || !strings.Contains(*job.Error, "ObjectMissing") {
		t.Errorf("expected error summary to name the fatal kind, got %v", job.Error)
	}
}
