package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind is what was submitted.
type Kind string

const (
	KindUpload      Kind = "upload"
	KindAggregation Kind = "aggregation"
	KindFetch       Kind = "fetch"
)

// Outcome is how the submission ended as far as this client knows.
type Outcome string

const (
	OutcomeSucceeded  Outcome = "succeeded"
	OutcomeFailed     Outcome = "failed"
	OutcomeDispatched Outcome = "dispatched"
)

// Entry is one journal row.
type Entry struct {
	ID        string
	Kind      Kind
	Name      string
	Detail    string
	Outcome   Outcome
	CreatedAt time.Time
}

// Journal stores entries in a sqlite file.
type Journal struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal at path and migrates it.
func Open(path string) (*Journal, error) {
	db, err := open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := migrateUp(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error { return j.db.Close() }

// Record appends e, filling ID and CreatedAt when unset, and returns the
// stored entry.
func (j *Journal) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now()
	}
	_, err := j.db.ExecContext(ctx, `
	INSERT INTO entries(id, kind, name, detail, outcome, created_at)
	VALUES (?, ?, ?, ?, ?, ?);
	`, e.ID, string(e.Kind), e.Name, e.Detail, string(e.Outcome), e.CreatedAt.UTC())
	if err != nil {
		return Entry{}, fmt.Errorf("record %s %q: %w", e.Kind, e.Name, err)
	}
	return e, nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, `
	SELECT id, kind, name, detail, outcome, created_at
	FROM entries
	ORDER BY created_at DESC, rowid DESC
	LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		var kind, outcome string
		if err := rows.Scan(&e.ID, &kind, &e.Name, &e.Detail, &outcome, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Kind = Kind(kind)
		e.Outcome = Outcome(outcome)
		out = append(out, e)
	}
	return out, rows.Err()
}
