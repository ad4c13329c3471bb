package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath        string          `json:"db_path"`
	DBSizeBytes   int64           `json:"db_size_bytes"`
	Profiles      int             `json:"profiles"`
	Charters      int             `json:"charters"`
	Events        int             `json:"events"`
	Conversations int             `json:"conversations"`
	Messages      int             `json:"messages"`
	EventsByKind  []CategoryStats `json:"events_by_category"`
}

// CategoryStats holds per-category event counts.
type CategoryStats struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{DBPath: s.path}

	// DB file size
	if info, err := os.Stat(s.path); err == nil {
		st.DBSizeBytes = info.Size()
	}

	counts := []struct {
		table string
		dest  *int
	}{
		{"profiles", &st.Profiles},
		{"charters", &st.Charters},
		{"life_events", &st.Events},
		{"conversations", &st.Conversations},
		{"messages", &st.Messages},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+c.table).Scan(c.dest); err != nil {
			return st, err
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category, COUNT(*) AS cnt
		FROM life_events GROUP BY category ORDER BY cnt DESC, category`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var cs CategoryStats
		rows.Scan(&cs.Category, &cs.Count)
		st.EventsByKind = append(st.EventsByKind, cs)
	}

	return st, rows.Err()
}
