package events

import (
	"context"
	"database/sql"

	"custodia/internal/custody/models"
	id "custodia/pkg/domain"
)

// PostgresStore persists the audit trail next to the registry.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS custody_events (
	id           UUID PRIMARY KEY,
	emitted_at   TIMESTAMPTZ NOT NULL,
	tick         BIGINT NOT NULL,
	container_id BIGINT NOT NULL,
	action       TEXT NOT NULL,
	actor        TEXT NOT NULL,
	detail       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS custody_events_container_idx
	ON custody_events (container_id, emitted_at);
`

// EnsureSchema creates the event table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *PostgresStore) Append(ctx context.Context, event models.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO custody_events
			(id, emitted_at, tick, container_id, action, actor, detail)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		event.ID, event.EmittedAt, event.Tick, uint64(event.ContainerID),
		event.Action, event.Actor, event.Detail)
	return err
}

// ListByContainer returns a container's audit trail in emission order.
func (s *PostgresStore) ListByContainer(ctx context.Context, containerID id.ContainerID) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, emitted_at, tick, container_id, action, actor, detail
		FROM custody_events
		WHERE container_id = $1
		ORDER BY emitted_at`, uint64(containerID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.EmittedAt, &e.Tick, &e.ContainerID,
			&e.Action, &e.Actor, &e.Detail); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
