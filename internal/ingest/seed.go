package ingest

import (
	"context"
	"fmt"

	"github.com/rcliao/munger/internal/model"
)

// Store is the wisdom store as seen by seeding and bundle import.
type Store interface {
	Sink
	Count() int
	Get(id string) (model.WisdomRecord, bool)
}

// Seed loads the built-in wisdom into an empty store and returns the number
// of records added. A store that already has records is left alone.
func Seed(ctx context.Context, st Store) (int, error) {
	if st.Count() > 0 {
		return 0, nil
	}
	recs := SeedRecords()
	if _, err := st.AddBatch(ctx, recs); err != nil {
		return 0, fmt.Errorf("seed wisdom: %w", err)
	}
	return len(recs), nil
}
