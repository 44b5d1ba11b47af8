package identityrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/conductores/driver-registry-api/internal/adapters/postgres"
	"github.com/conductores/driver-registry-api/internal/domain"
	"github.com/conductores/driver-registry-api/internal/ports/out/identityrepo"
)

// Repo is a Postgres implementation of identityrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, id identityrepo.Identity) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id.ID))
	if err != nil {
		return fmt.Errorf("invalid identity id: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO identities (id, email, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		uid,
		strings.TrimSpace(id.Email),
		id.PasswordHash,
		string(id.Role),
		id.CreatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			switch pe.ConstraintName {
			case "identities_email_unique":
				return identityrepo.ErrEmailTaken
			case "identities_pkey":
				return identityrepo.ErrAlreadyExists
			}
		}
		return err
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id domain.IdentityID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return identityrepo.ErrNotFound
	}
	ct, err := r.pool.Exec(ctx, `DELETE FROM identities WHERE id = $1`, uid)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return identityrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.IdentityID) (identityrepo.Identity, error) {
	if r.pool == nil {
		return identityrepo.Identity{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return identityrepo.Identity{}, identityrepo.ErrNotFound
	}
	return scanIdentity(r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, role, created_at
		FROM identities
		WHERE id = $1
	`, uid))
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (identityrepo.Identity, error) {
	if r.pool == nil {
		return identityrepo.Identity{}, errors.New("nil postgres pool")
	}
	return scanIdentity(r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, role, created_at
		FROM identities
		WHERE lower(email) = lower($1)
	`, strings.TrimSpace(email)))
}

func scanIdentity(row pgx.Row) (identityrepo.Identity, error) {
	var (
		id        uuid.UUID
		email     string
		hash      []byte
		role      string
		createdAt time.Time
	)
	if err := row.Scan(&id, &email, &hash, &role, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return identityrepo.Identity{}, identityrepo.ErrNotFound
		}
		return identityrepo.Identity{}, err
	}
	return identityrepo.Identity{
		ID:           domain.IdentityID(id.String()),
		Email:        email,
		PasswordHash: hash,
		Role:         domain.Role(role),
		CreatedAt:    createdAt.UTC(),
	}, nil
}
