package audit

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"
)

// exportColumns is the fixed column set for tabular export. Order and
// presence never depend on filter state.
var exportColumns = []string{"Timestamp", "Type", "Admin", "Target User", "Action", "Details", "Session ID"}

// WriteCSV serializes entries to w in the fixed tabular form used by the
// audit report download
func WriteCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(exportColumns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, entry := range entries {
		record := []string{
			entry.Timestamp.UTC().Format(time.RFC3339),
			string(entry.Type),
			entry.AdminEmail,
			entry.TargetUserEmail,
			entry.Action,
			entry.Details,
			entry.SessionID.String(),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// ExportFilename returns the download filename for an export taken at t
func ExportFilename(t time.Time) string {
	return fmt.Sprintf("impersonation_audit_%s.csv", t.UTC().Format("2006-01-02"))
}
