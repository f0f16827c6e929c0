package registry

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"custodia/internal/custody/models"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// PostgresStore is the durable registry. Id allocation rides a database
// sequence so ids stay monotonic and unused allocations are never handed out
// again, even across processes.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const schema = `
CREATE SEQUENCE IF NOT EXISTS container_id_seq START 1;

CREATE TABLE IF NOT EXISTS containers (
	id             BIGINT PRIMARY KEY,
	originator     TEXT NOT NULL,
	destination    TEXT NOT NULL,
	asset          TEXT NOT NULL,
	quantity       BIGINT NOT NULL,
	status         TEXT NOT NULL,
	inception      BIGINT NOT NULL,
	termination    BIGINT NOT NULL,
	recovery_agent TEXT NOT NULL DEFAULT '',
	multisig_signers   TEXT[],
	multisig_threshold INT,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema creates the registry tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *PostgresStore) AllocateID(ctx context.Context) (id.ContainerID, error) {
	var allocated uint64
	err := s.db.QueryRowContext(ctx, `SELECT nextval('container_id_seq')`).Scan(&allocated)
	if err != nil {
		return 0, err
	}
	return id.ContainerID(allocated), nil
}

func (s *PostgresStore) Get(ctx context.Context, containerID id.ContainerID) (*models.Container, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, originator, destination, asset, quantity, status,
		       inception, termination, recovery_agent,
		       multisig_signers, multisig_threshold
		FROM containers WHERE id = $1`, uint64(containerID))

	var (
		c         models.Container
		status    string
		signers   pq.StringArray
		threshold sql.NullInt64
	)
	err := row.Scan(&c.ID, &c.Originator, &c.Destination, &c.Asset, &c.Quantity,
		&status, &c.Inception, &c.Termination, &c.RecoveryAgent,
		&signers, &threshold)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "container %d not found", containerID)
	}
	if err != nil {
		return nil, err
	}
	if c.Status, err = models.ParseStatus(status); err != nil {
		return nil, err
	}

	if threshold.Valid {
		policy := &models.MultisigPolicy{Threshold: int(threshold.Int64)}
		for _, s := range signers {
			policy.Signers = append(policy.Signers, id.AccountID(s))
		}
		c.Multisig = policy
	}
	return &c, nil
}

func (s *PostgresStore) Put(ctx context.Context, c *models.Container) error {
	if c == nil || c.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "container with id is required")
	}

	var (
		signers   interface{}
		threshold sql.NullInt64
	)
	if c.Multisig != nil {
		arr := make(pq.StringArray, 0, len(c.Multisig.Signers))
		for _, s := range c.Multisig.Signers {
			arr = append(arr, string(s))
		}
		signers = arr
		threshold = sql.NullInt64{Int64: int64(c.Multisig.Threshold), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO containers
			(id, originator, destination, asset, quantity, status,
			 inception, termination, recovery_agent,
			 multisig_signers, multisig_threshold, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now())
		ON CONFLICT (id) DO UPDATE SET
			originator         = EXCLUDED.originator,
			destination        = EXCLUDED.destination,
			asset              = EXCLUDED.asset,
			quantity           = EXCLUDED.quantity,
			status             = EXCLUDED.status,
			inception          = EXCLUDED.inception,
			termination        = EXCLUDED.termination,
			recovery_agent     = EXCLUDED.recovery_agent,
			multisig_signers   = EXCLUDED.multisig_signers,
			multisig_threshold = EXCLUDED.multisig_threshold,
			updated_at         = now()`,
		uint64(c.ID), c.Originator, c.Destination, c.Asset, c.Quantity, c.Status,
		c.Inception, c.Termination, c.RecoveryAgent, signers, threshold)
	return err
}
