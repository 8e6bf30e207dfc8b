package benchmark

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/customer-ingest/internal/config"
	"github.com/customer-ingest/internal/errorreport"
	"github.com/customer-ingest/internal/mocks"
	"github.com/customer-ingest/internal/models"
	"github.com/customer-ingest/internal/validation"
	"github.com/customer-ingest/internal/worker"
	"github.com/rs/zerolog"
)

func genCSV(rows int) []byte {
	var buf bytes.Buffer
	buf.WriteString("email,first_name,last_name,phone,city\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&buf, "user%d@example.com,First%d,Last%d,555-000%d,City%d\n", i, i, i, i%10, i%50)
	}
	return buf.Bytes()
}

// BenchmarkProcessInsertOnly benchmarks the full worker pipeline
// (decode, validate, dedupe, batch) against a staged file of 1000 rows.
func BenchmarkProcessInsertOnly(b *testing.B) {
	data := genCSV(1000)
	cfg := config.ImportConfig{BatchSize: 500, ProgressEvery: 1000}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		jobs := mocks.NewMockJobRepository()
		customers := mocks.NewMockCustomerRepository()
		store := mocks.NewMockObjectStore()

		job := &models.ImportJob{ID: "job", UserID: "u", Status: models.JobStatusPending, Mode: models.ModeInsertOnly, S3Key: "k"}
		jobs.Jobs[job.ID] = job
		store.Objects[job.S3Key] = data

		w := worker.New(jobs, customers, store, cfg, zerolog.Nop())
		if err := w.Process(context.Background(), job.ID); err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
	}

	b.ReportMetric(float64(1000*b.N)/b.Elapsed().Seconds(), "rows/sec")
}

// BenchmarkValidateEmail benchmarks the email validity check applied
// to every row the worker sees.
func BenchmarkValidateEmail(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		validation.IsValidEmail("user@example.com")
	}
}

// BenchmarkErrorReportBuild benchmarks serializing a large error
// report, which runs once per failed job on the hot path to S3.
func BenchmarkErrorReportBuild(b *testing.B) {
	rows := make([]models.ErrorRow, 1000)
	for i := range rows {
		rows[i] = models.ErrorRow{Row: i + 1, Error: "invalid email \"bad\"", Raw: "bad,,,,"}
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := errorreport.Build(rows); err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
	}
}

// BenchmarkBatchInsert benchmarks the customer repository's batch
// insert path against a mock backing store.
func BenchmarkBatchInsert(b *testing.B) {
	customers := mocks.NewMockCustomerRepository()
	payloads := make([]*models.CustomerPayload, 1000)
	for i := range payloads {
		email := fmt.Sprintf("user%d@example.com", i)
		payloads[i] = &models.CustomerPayload{Row: i + 1, Email: email}
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := customers.BatchInsert(context.Background(), payloads); err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
	}

	b.ReportMetric(float64(1000*b.N)/b.Elapsed().Seconds(), "rows/sec")
}
