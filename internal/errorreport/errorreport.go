// Package errorreport builds the per-row error CSV a failed import
// job uploads through the object store gateway.
package errorreport

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/customer-ingest/internal/models"
)

// Build serializes rows in detection order (source-file order modulo
// batch boundaries) as standard CSV with header row,error,raw. The
// report is never globally re-sorted by row number.
func Build(rows []models.ErrorRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"row", "error", "raw"}); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := w.Write([]string{fmt.Sprintf("%d", r.Row), r.Error, r.Raw}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ObjectKey returns the error-report file name for a job. The worker
// stages the report under this name (the gateway prefixes it with its
// generated imports/<uuid>_ key), and the presigned download forces
// it as the filename.
func ObjectKey(jobID string) string {
	return fmt.Sprintf("errors_%s.csv", jobID)
}
