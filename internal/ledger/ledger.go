// Package ledger provides an append-only history of reconciler transitions
// and per-light command outcomes, for auditing why the lights did what they
// did.
package ledger

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Transition is one recorded reconciler state change.
type Transition struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Reason    string    `json:"reason"`
	AnyActive bool      `json:"any_active"`
}

// Command is one recorded per-light dispatch outcome.
type Command struct {
	ID          int64     `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	BroadcastID string    `json:"broadcast_id"`
	Address     string    `json:"address"`
	State       string    `json:"state"`
	Outcome     string    `json:"outcome"`
}

// Ledger is an append-only SQLite event history.
type Ledger struct {
	db *sql.DB
}

// Open opens the ledger database and initializes the schema.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Ledger{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS transitions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			from_state TEXT NOT NULL,
			to_state TEXT NOT NULL,
			reason TEXT NOT NULL,
			any_active INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_transitions_ts ON transitions(timestamp);
	`)
	if err != nil {
		return fmt.Errorf("failed to create transitions table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS light_commands (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			broadcast_id TEXT NOT NULL,
			address TEXT NOT NULL,
			state TEXT NOT NULL,
			outcome TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_commands_ts ON light_commands(timestamp);
		CREATE INDEX IF NOT EXISTS idx_commands_broadcast ON light_commands(broadcast_id);
	`)
	if err != nil {
		return fmt.Errorf("failed to create light_commands table: %w", err)
	}

	return nil
}

// RecordTransition appends one reconciler state change.
func (l *Ledger) RecordTransition(from, to, reason string, anyActive bool) error {
	_, err := l.db.Exec(
		`INSERT INTO transitions (timestamp, from_state, to_state, reason, any_active) VALUES (?, ?, ?, ?, ?)`,
		time.Now().UTC().Unix(), from, to, reason, anyActive,
	)
	return err
}

// RecordCommand appends one per-light dispatch outcome.
func (l *Ledger) RecordCommand(broadcastID, address string, on bool, outcome string) error {
	state := "off"
	if on {
		state = "on"
	}

	_, err := l.db.Exec(
		`INSERT INTO light_commands (timestamp, broadcast_id, address, state, outcome) VALUES (?, ?, ?, ?, ?)`,
		time.Now().UTC().Unix(), broadcastID, address, state, outcome,
	)
	return err
}

// RecentTransitions returns the newest transitions, newest first.
func (l *Ledger) RecentTransitions(limit int) ([]*Transition, error) {
	rows, err := l.db.Query(`
		SELECT id, timestamp, from_state, to_state, reason, any_active
		FROM transitions
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Transition
	for rows.Next() {
		var entry Transition
		var ts int64
		if err := rows.Scan(&entry.ID, &ts, &entry.From, &entry.To, &entry.Reason, &entry.AnyActive); err != nil {
			return nil, err
		}
		entry.Timestamp = time.Unix(ts, 0).UTC()
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// RecentCommands returns the newest per-light outcomes, newest first.
func (l *Ledger) RecentCommands(limit int) ([]*Command, error) {
	rows, err := l.db.Query(`
		SELECT id, timestamp, broadcast_id, address, state, outcome
		FROM light_commands
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Command
	for rows.Next() {
		var entry Command
		var ts int64
		if err := rows.Scan(&entry.ID, &ts, &entry.BroadcastID, &entry.Address, &entry.State, &entry.Outcome); err != nil {
			return nil, err
		}
		entry.Timestamp = time.Unix(ts, 0).UTC()
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// DeleteOlderThan removes entries older than the retention window from both
// tables and reports how many rows were deleted.
func (l *Ledger) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).Unix()

	var total int64
	for _, table := range []string{"transitions", "light_commands"} {
		result, err := l.db.Exec(`DELETE FROM `+table+` WHERE timestamp < ?`, cutoff)
		if err != nil {
			return total, err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return total, err
		}
		total += n
	}

	return total, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}
