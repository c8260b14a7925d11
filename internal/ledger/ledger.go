// Package ledger keeps an append-only history of sync decisions: what was
// propagated, what was suppressed as an echo, and what failed.
package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huefri/internal/hub"
)

// Entry represents a single event in the ledger
type Entry struct {
	ID        int64
	Kind      hub.EventKind
	Timestamp time.Time
	Hub       string
	Target    string
	Command   string
	Payload   Payload
	Error     string
}

// Payload is the light state carried by an event.
type Payload struct {
	On         bool   `json:"on"`
	Hex        string `json:"hex,omitempty"`
	Hue        int    `json:"hue,omitempty"`
	Saturation int    `json:"sat,omitempty"`
	Brightness int    `json:"bri,omitempty"`
}

// Ledger provides append-only event logging
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new Ledger using the provided database connection
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// Append adds a new event to the ledger
func (l *Ledger) Append(ev hub.Event) error {
	payload, err := json.Marshal(Payload{
		On:         ev.On,
		Hex:        ev.Hex,
		Hue:        ev.Hue,
		Saturation: ev.Saturation,
		Brightness: ev.Brightness,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	var errText sql.NullString
	if ev.Err != nil {
		errText = sql.NullString{String: ev.Err.Error(), Valid: true}
	}

	_, err = l.db.Exec(
		`INSERT INTO sync_ledger (kind, timestamp, hub, target, command, payload, error) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(ev.Kind), l.now().UTC().Unix(), ev.Hub, ev.Target, ev.Command, string(payload), errText,
	)
	return err
}

// Record implements hub.Recorder. Failures are logged, never returned, so
// that a broken ledger cannot stall the sync loop.
func (l *Ledger) Record(ev hub.Event) {
	if err := l.Append(ev); err != nil {
		log.Warn().Err(err).Str("kind", string(ev.Kind)).Msg("Failed to append to ledger")
	}
}

// GetByKind returns the newest entries of one kind
func (l *Ledger) GetByKind(kind hub.EventKind, limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, kind, timestamp, hub, target, command, payload, error
		FROM sync_ledger
		WHERE kind = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, string(kind), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// Recent returns the newest entries of any kind
func (l *Ledger) Recent(limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, kind, timestamp, hub, target, command, payload, error
		FROM sync_ledger
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// DeleteOlderThan removes entries older than the specified duration (retention policy)
func (l *Ledger) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := l.now().Add(-retention).Unix()
	result, err := l.db.Exec(`
		DELETE FROM sync_ledger WHERE timestamp < ?
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (l *Ledger) scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var entry Entry
		var target, command, payload, errText sql.NullString
		var timestamp int64

		err := rows.Scan(
			&entry.ID, &entry.Kind, &timestamp, &entry.Hub, &target, &command, &payload, &errText,
		)
		if err != nil {
			return nil, err
		}

		entry.Timestamp = time.Unix(timestamp, 0).UTC()
		entry.Target = target.String
		entry.Command = command.String
		entry.Error = errText.String

		if payload.Valid && payload.String != "" {
			if err := json.Unmarshal([]byte(payload.String), &entry.Payload); err != nil {
				return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
			}
		}

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

var _ hub.Recorder = (*Ledger)(nil)
