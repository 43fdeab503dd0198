// Package incidentstore persists Incident records keyed by id, against
// the incident_memory table in spec.md §6.
package incidentstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/reliabot/agent/internal/model"
)

// Store is a Postgres-backed incident store.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to dsn.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("incidentstore: connect: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() { s.pool.Close() }

// PersistAll inserts every incident from a single detector run. This is
// the only place Incident rows are written (spec.md §3's lifecycle
// invariant: "any persistence mutation is confined to persistIncidents").
func (s *Store) PersistAll(ctx context.Context, incidents []model.Incident) error {
	for _, inc := range incidents {
		evidence, err := json.Marshal(inc.Evidence)
		if err != nil {
			return fmt.Errorf("incidentstore: marshal evidence for %s: %w", inc.ID, err)
		}
		_, err = s.pool.Exec(ctx, `
			INSERT INTO incident_memory (id, title, severity, first_seen, last_seen, event_count, evidence)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO NOTHING
		`, inc.ID, inc.Title, string(inc.Severity), inc.FirstSeen, inc.LastSeen, inc.Count, evidence)
		if err != nil {
			return fmt.Errorf("incidentstore: persist incident %s: %w", inc.ID, err)
		}
	}
	return nil
}
