package documentrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/conductores/driver-registry-api/internal/adapters/postgres"
	"github.com/conductores/driver-registry-api/internal/domain"
	"github.com/conductores/driver-registry-api/internal/ports/out/documentrepo"
)

// Repo is a Postgres implementation of documentrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, d domain.Document) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(d.ID))
	if err != nil {
		return fmt.Errorf("invalid document id: %w", err)
	}
	driverID, err := uuid.Parse(string(d.DriverID))
	if err != nil {
		return documentrepo.ErrUnknownDriver
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO documents (id, driver_id, doc_type, location, content_type, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		id,
		driverID,
		string(d.Type),
		d.Location,
		d.ContentType,
		d.Size,
		d.CreatedAt.UTC(),
	)
	switch {
	case err == nil:
		return nil
	case postgres.IsUniqueViolation(err, "documents_pkey"):
		return documentrepo.ErrAlreadyExists
	case postgres.IsForeignKeyViolation(err):
		return documentrepo.ErrUnknownDriver
	default:
		return err
	}
}

func (r *Repo) ListByDriver(ctx context.Context, driverID domain.DriverID) ([]domain.Document, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(driverID))
	if err != nil {
		return []domain.Document{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, driver_id, doc_type, location, content_type, size_bytes, created_at
		FROM documents
		WHERE driver_id = $1
		ORDER BY array_position($2::text[], doc_type) ASC, created_at DESC, id::text ASC
	`, uid, typeOrder())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Document, 0)
	for rows.Next() {
		var (
			id, drv   uuid.UUID
			typ       string
			doc       domain.Document
			createdAt time.Time
		)
		if err := rows.Scan(&id, &drv, &typ, &doc.Location, &doc.ContentType, &doc.Size, &createdAt); err != nil {
			return nil, err
		}
		doc.ID = domain.DocumentID(id.String())
		doc.DriverID = domain.DriverID(drv.String())
		doc.Type = domain.DocumentType(typ)
		doc.CreatedAt = createdAt.UTC()
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func typeOrder() []string {
	out := make([]string, 0, len(domain.DocumentTypes))
	for _, t := range domain.DocumentTypes {
		out = append(out, string(t))
	}
	return out
}
