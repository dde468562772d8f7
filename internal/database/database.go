package database

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// AuditLog records moderation decisions and settlement receipts in SQLite.
// It is write-mostly, never load-bearing for the accept path, and all methods
// are safe on a nil receiver so the audit trail stays optional.
type AuditLog struct {
	db *sql.DB
}

// New opens (or creates) the audit database at path.
func New(path string) (*AuditLog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	// Single writer with a busy timeout; the service is the only client.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure audit database: %w", err)
	}

	a := &AuditLog{db: db}
	if err := a.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	log.Println("✅ Audit database ready")
	return a, nil
}

func (a *AuditLog) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS moderation_decisions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		content_hash TEXT NOT NULL,
		stage TEXT NOT NULL,
		approved INTEGER NOT NULL,
		reason TEXT NOT NULL,
		flags TEXT NOT NULL,
		decided_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_moderation_hash ON moderation_decisions(content_hash);

	CREATE TABLE IF NOT EXISTS settlement_receipts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		settlement_id TEXT NOT NULL,
		identity TEXT NOT NULL,
		wallet TEXT NOT NULL,
		amount REAL NOT NULL,
		success INTEGER NOT NULL,
		error TEXT NOT NULL,
		attempted_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_settlement_id ON settlement_receipts(settlement_id);
	`
	if _, err := a.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create audit tables: %w", err)
	}
	return nil
}

// RecordModeration stores one moderation verdict. Flags are joined with ","
// since the vocabulary of flag names contains no commas.
func (a *AuditLog) RecordModeration(contentHash, stage string, approved bool, reason string, flags []string) error {
	if a == nil {
		return nil
	}
	_, err := a.db.Exec(
		`INSERT INTO moderation_decisions (content_hash, stage, approved, reason, flags, decided_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		contentHash, stage, boolToInt(approved), reason, strings.Join(flags, ","),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// RecordSettlement stores the outcome of one transfer attempt.
func (a *AuditLog) RecordSettlement(settlementID, identity, wallet string, amount float64, success bool, errMsg string) error {
	if a == nil {
		return nil
	}
	_, err := a.db.Exec(
		`INSERT INTO settlement_receipts (settlement_id, identity, wallet, amount, success, error, attempted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		settlementID, identity, wallet, amount, boolToInt(success), errMsg,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// Close closes the underlying database.
func (a *AuditLog) Close() error {
	if a == nil {
		return nil
	}
	return a.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
