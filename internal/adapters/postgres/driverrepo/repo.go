package driverrepo

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
	"github.com/conductores/driver-registry-api/internal/ports/out/driverrepo"
)

const selectDriver = `
	SELECT
		d.id,
		d.identity_id,
		d.first_names,
		d.last_names,
		d.national_id,
		d.license_number,
		d.phone,
		d.address,
		d.plate,
		d.vehicle_make,
		d.vehicle_model,
		d.vehicle_color,
		d.policy_number,
		d.lookup_token,
		d.created_at
	FROM drivers d
`

// Repo is a Postgres implementation of driverrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, d domain.Driver) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(d.ID))
	if err != nil {
		return fmt.Errorf("invalid driver id: %w", err)
	}
	identityID, err := uuid.Parse(string(d.IdentityID))
	if err != nil {
		return fmt.Errorf("invalid identity id: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO drivers (
			id,
			identity_id,
			first_names,
			last_names,
			national_id,
			license_number,
			phone,
			address,
			plate,
			vehicle_make,
			vehicle_model,
			vehicle_color,
			policy_number,
			lookup_token,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		id,
		identityID,
		d.FirstNames,
		d.LastNames,
		d.NationalID,
		d.LicenseNumber,
		d.Phone,
		d.Address,
		d.Vehicle.Plate,
		d.Vehicle.Make,
		d.Vehicle.Model,
		d.Vehicle.Color,
		d.Vehicle.PolicyNumber,
		string(d.LookupToken),
		d.CreatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			// Determine which unique constraint was violated.
			switch pe.ConstraintName {
			case "drivers_pkey":
				return driverrepo.ErrAlreadyExists
			case "drivers_identity_unique":
				return driverrepo.ErrIdentityAlreadyBound
			case "drivers_national_id_unique":
				return driverrepo.ErrDuplicateNationalID
			case "drivers_lookup_token_unique":
				return driverrepo.ErrDuplicateLookupToken
			}
		}
		return err
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.DriverID) (domain.Driver, error) {
	if r.pool == nil {
		return domain.Driver{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return domain.Driver{}, driverrepo.ErrNotFound
	}
	return scanDriver(r.pool.QueryRow(ctx, selectDriver+` WHERE d.id = $1`, uid))
}

func (r *Repo) GetByIdentity(ctx context.Context, identityID domain.IdentityID) (domain.Driver, error) {
	if r.pool == nil {
		return domain.Driver{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(identityID))
	if err != nil {
		return domain.Driver{}, driverrepo.ErrNotFound
	}
	return scanDriver(r.pool.QueryRow(ctx, selectDriver+` WHERE d.identity_id = $1`, uid))
}

func (r *Repo) GetByLookupToken(ctx context.Context, token domain.LookupToken) (domain.Driver, error) {
	if r.pool == nil {
		return domain.Driver{}, errors.New("nil postgres pool")
	}
	return scanDriver(r.pool.QueryRow(ctx, selectDriver+` WHERE d.lookup_token = $1`, string(token)))
}

func (r *Repo) Search(ctx context.Context, query string, limit int) ([]domain.Driver, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	qTokens := tokenize(query)
	if len(qTokens) == 0 {
		return []domain.Driver{}, nil
	}

	var sb strings.Builder
	sb.WriteString(selectDriver)
	sb.WriteString(` WHERE true `)
	args := make([]any, 0, 2*len(qTokens))
	for _, tok := range qTokens {
		// Match all tokens (AND) in a case-insensitive way; plates also match the
		// token normalized like a stored plate.
		plate := strings.ToLower(domain.NormalizePlate(tok))
		if plate == "" {
			plate = tok
		}
		args = append(args, "%"+escapeLike(tok)+"%", "%"+escapeLike(plate)+"%")
		sb.WriteString(fmt.Sprintf(
			` AND (lower(concat_ws(' ', d.first_names, d.last_names, d.national_id, d.plate)) LIKE $%d ESCAPE '\'`+
				` OR lower(d.plate) LIKE $%d ESCAPE '\') `, len(args)-1, len(args)))
	}
	sb.WriteString(` ORDER BY lower(d.last_names) ASC, lower(d.first_names) ASC, d.id::text ASC `)
	if limit > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT %d ", limit))
	}

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Driver, 0)
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// --- helpers ---

func tokenize(s string) []string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanDriver(row pgx.Row) (domain.Driver, error) {
	var (
		id         uuid.UUID
		identityID uuid.UUID
		d          domain.Driver
		token      string
		createdAt  time.Time
	)
	if err := row.Scan(
		&id,
		&identityID,
		&d.FirstNames,
		&d.LastNames,
		&d.NationalID,
		&d.LicenseNumber,
		&d.Phone,
		&d.Address,
		&d.Vehicle.Plate,
		&d.Vehicle.Make,
		&d.Vehicle.Model,
		&d.Vehicle.Color,
		&d.Vehicle.PolicyNumber,
		&token,
		&createdAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Driver{}, driverrepo.ErrNotFound
		}
		return domain.Driver{}, err
	}
	d.ID = domain.DriverID(id.String())
	d.IdentityID = domain.IdentityID(identityID.String())
	d.LookupToken = domain.LookupToken(token)
	d.CreatedAt = createdAt.UTC()
	return d, nil
}
