package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	path    string
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		path:    dbPath,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		background  TEXT NOT NULL,
		constraints TEXT NOT NULL,
		preferences TEXT NOT NULL,
		bio         TEXT,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_profiles_created ON profiles(created_at);

	CREATE TABLE IF NOT EXISTS charters (
		id               TEXT PRIMARY KEY,
		user_id          TEXT NOT NULL UNIQUE REFERENCES profiles(id) ON DELETE CASCADE,
		core_values      TEXT,
		non_negotiables  TEXT,
		long_term_goals  TEXT,
		anti_goals       TEXT,
		remember_topics  TEXT,
		forget_topics    TEXT,
		sensitive_topics TEXT,
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS life_events (
		id              TEXT PRIMARY KEY,
		user_id         TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		date            TEXT NOT NULL,
		title           TEXT NOT NULL,
		description     TEXT NOT NULL DEFAULT '',
		category        TEXT NOT NULL DEFAULT 'other',
		people_involved TEXT,
		emotions        TEXT,
		significance    INTEGER NOT NULL DEFAULT 5,
		lessons_learned TEXT,
		follow_up_date  TEXT,
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_user_date ON life_events(user_id, date DESC);
	CREATE INDEX IF NOT EXISTS idx_events_category ON life_events(user_id, category);

	CREATE TABLE IF NOT EXISTS event_links (
		from_id    TEXT NOT NULL REFERENCES life_events(id) ON DELETE CASCADE,
		to_id      TEXT NOT NULL REFERENCES life_events(id) ON DELETE CASCADE,
		rel        TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (from_id, to_id, rel)
	);
	CREATE INDEX IF NOT EXISTS idx_event_links_to ON event_links(to_id);

	CREATE TABLE IF NOT EXISTS conversations (
		id              TEXT PRIMARY KEY,
		user_id         TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		title           TEXT,
		session_mood    TEXT,
		session_context TEXT,
		started_at      TEXT NOT NULL,
		ended_at        TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id, started_at DESC);

	CREATE TABLE IF NOT EXISTS messages (
		id                 TEXT PRIMARY KEY,
		conversation_id    TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		role               TEXT NOT NULL,
		content            TEXT NOT NULL,
		timestamp          TEXT NOT NULL,
		mental_models_used TEXT,
		sources_cited      TEXT,
		context_used       TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Snapshot writes a consistent copy of the database to dest.
func (s *SQLiteStore) Snapshot(ctx context.Context, dest string) error {
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove old snapshot: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, dest); err != nil {
		return fmt.Errorf("vacuum into %s: %w", dest, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// now returns the current time at the precision stored in the database.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := formatTime(*t)
	return &v
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func parseTimePtr(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

// toJSON encodes v for a JSON text column. Empty lists and maps are stored as NULL.
func toJSON(v interface{}) *string {
	switch x := v.(type) {
	case []string:
		if len(x) == 0 {
			return nil
		}
	case map[string]string:
		if len(x) == 0 {
			return nil
		}
	}
	b, _ := json.Marshal(v)
	str := string(b)
	return &str
}

func fromJSON(ns sql.NullString, dest interface{}) {
	if ns.Valid {
		json.Unmarshal([]byte(ns.String), dest)
	}
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// affected maps a zero-row update or delete to ErrNotFound.
func affected(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return nil
}
