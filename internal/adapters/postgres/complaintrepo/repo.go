package complaintrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/conductores/driver-registry-api/internal/adapters/postgres"
	"github.com/conductores/driver-registry-api/internal/domain"
	"github.com/conductores/driver-registry-api/internal/ports/out/complaintrepo"
)

// Repo is a Postgres implementation of complaintrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, c domain.Complaint) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(c.ID))
	if err != nil {
		return fmt.Errorf("invalid complaint id: %w", err)
	}
	driverID, err := uuid.Parse(string(c.DriverID))
	if err != nil {
		return complaintrepo.ErrUnknownDriver
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO complaints (id, driver_id, body, created_at)
		VALUES ($1, $2, $3, $4)
	`, id, driverID, c.Text, c.CreatedAt.UTC())
	switch {
	case err == nil:
		return nil
	case postgres.IsUniqueViolation(err, "complaints_pkey"):
		return complaintrepo.ErrAlreadyExists
	case postgres.IsForeignKeyViolation(err):
		return complaintrepo.ErrUnknownDriver
	default:
		return err
	}
}

func (r *Repo) ListByDriver(ctx context.Context, driverID domain.DriverID) ([]domain.Complaint, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(driverID))
	if err != nil {
		return []domain.Complaint{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, driver_id, body, created_at
		FROM complaints
		WHERE driver_id = $1
		ORDER BY created_at DESC, id::text ASC
	`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Complaint, 0)
	for rows.Next() {
		var (
			id, drv   uuid.UUID
			c         domain.Complaint
			createdAt time.Time
		)
		if err := rows.Scan(&id, &drv, &c.Text, &createdAt); err != nil {
			return nil, err
		}
		c.ID = domain.ComplaintID(id.String())
		c.DriverID = domain.DriverID(drv.String())
		c.CreatedAt = createdAt.UTC()
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
