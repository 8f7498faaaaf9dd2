package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore keeps both documents in one SQLite database. Saves replace the
// whole document inside a single transaction.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	// One connection keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS participants (
        conversation_id TEXT PRIMARY KEY,
        user_id TEXT NOT NULL,
        name TEXT NOT NULL,
        username TEXT NOT NULL DEFAULT '',
        wishlist TEXT
    );

    CREATE TABLE IF NOT EXISTS assignments (
        giver_user_id TEXT PRIMARY KEY,
        receiver_user_id TEXT NOT NULL
    );

    CREATE TABLE IF NOT EXISTS rounds (
        id INTEGER PRIMARY KEY CHECK (id = 1),
        round_id TEXT NOT NULL,
        started_at DATETIME
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// Participant methods
func (s *SQLiteStore) LoadParticipants() (*ParticipantDocument, error) {
	rows, err := s.db.Query("SELECT conversation_id, user_id, name, username, wishlist FROM participants")
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}
	defer rows.Close()

	doc := NewParticipantDocument()
	for rows.Next() {
		var chatID string
		var p Participant
		var wishlist sql.NullString
		if err := rows.Scan(&chatID, &p.UserID, &p.DisplayName, &p.Handle, &wishlist); err != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", err)
		}
		if wishlist.Valid {
			p.Wishlist = &wishlist.String
		}
		doc.Participants[chatID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}
	return doc, nil
}

func (s *SQLiteStore) SaveParticipants(doc *ParticipantDocument) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin participants transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM participants"); err != nil {
		return fmt.Errorf("failed to clear participants: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO participants (conversation_id, user_id, name, username, wishlist) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare participant insert: %w", err)
	}
	defer stmt.Close()

	for chatID, p := range doc.Participants {
		var wishlist sql.NullString
		if p.Wishlist != nil {
			wishlist = sql.NullString{String: *p.Wishlist, Valid: true}
		}
		if _, err := stmt.Exec(chatID, p.UserID, p.DisplayName, p.Handle, wishlist); err != nil {
			return fmt.Errorf("failed to execute participant insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit participants: %w", err)
	}
	return nil
}

// Assignment methods
func (s *SQLiteStore) LoadAssignments() (*AssignmentDocument, error) {
	rows, err := s.db.Query("SELECT giver_user_id, receiver_user_id FROM assignments")
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	doc := NewAssignmentDocument()
	for rows.Next() {
		var giver, receiver string
		if err := rows.Scan(&giver, &receiver); err != nil {
			return nil, fmt.Errorf("failed to scan assignment row: %w", err)
		}
		doc.Assignments[giver] = receiver
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assignments: %w", err)
	}

	var startedAt sql.NullTime
	err = s.db.QueryRow("SELECT round_id, started_at FROM rounds WHERE id = 1").Scan(&doc.RoundID, &startedAt)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to query round: %w", err)
	}
	if startedAt.Valid {
		t := startedAt.Time
		doc.StartedAt = &t
	}
	return doc, nil
}

func (s *SQLiteStore) SaveAssignments(doc *AssignmentDocument) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin assignments transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM assignments"); err != nil {
		return fmt.Errorf("failed to clear assignments: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM rounds"); err != nil {
		return fmt.Errorf("failed to clear round: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO assignments (giver_user_id, receiver_user_id) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare assignment insert: %w", err)
	}
	defer stmt.Close()

	for giver, receiver := range doc.Assignments {
		if _, err := stmt.Exec(giver, receiver); err != nil {
			return fmt.Errorf("failed to execute assignment insert: %w", err)
		}
	}

	if doc.RoundID != "" {
		var startedAt any
		if doc.StartedAt != nil {
			startedAt = doc.StartedAt.UTC()
		}
		if _, err := tx.Exec("INSERT INTO rounds (id, round_id, started_at) VALUES (1, ?, ?)", doc.RoundID, startedAt); err != nil {
			return fmt.Errorf("failed to insert round: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit assignments: %w", err)
	}
	return nil
}
