package store

import (
	"database/sql"
	"fmt"

	"github.com/BTreeMap/ClimateCanvas/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// scanGenerations reads every row of a generations query.
func scanGenerations(rows *sql.Rows) ([]models.GenerationRecord, error) {
	var records []models.GenerationRecord
	for rows.Next() {
		var r models.GenerationRecord
		var outcome string
		var errText sql.NullString
		if err := rows.Scan(&r.ID, &r.City, &r.Issue, &r.Provider, &outcome, &errText, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan generation row: %w", err)
		}
		r.Outcome = models.GenerationOutcome(outcome)
		r.Error = errText.String
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate generation rows: %w", err)
	}
	return records, nil
}
