package driverrepo

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/conductores/driver-registry-api/internal/domain"
	"github.com/conductores/driver-registry-api/internal/ports/out/driverrepo"
)

// Repo is an in-memory implementation of driverrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	byID         map[domain.DriverID]domain.Driver
	idByIdentity map[domain.IdentityID]domain.DriverID
	idByToken    map[domain.LookupToken]domain.DriverID
	idByNational map[string]domain.DriverID

	// FailCreate, when set, is returned from Create. It lets tests exercise the
	// compensating path of registration without a real constraint violation.
	FailCreate error
}

func NewRepo() *Repo {
	return &Repo{
		byID:         make(map[domain.DriverID]domain.Driver),
		idByIdentity: make(map[domain.IdentityID]domain.DriverID),
		idByToken:    make(map[domain.LookupToken]domain.DriverID),
		idByNational: make(map[string]domain.DriverID),
	}
}

func (r *Repo) Create(ctx context.Context, d domain.Driver) error {
	_ = ctx
	if d.ID == "" {
		return driverrepo.ErrAlreadyExists
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailCreate != nil {
		return r.FailCreate
	}
	if _, ok := r.byID[d.ID]; ok {
		return driverrepo.ErrAlreadyExists
	}
	if _, ok := r.idByIdentity[d.IdentityID]; ok {
		return driverrepo.ErrIdentityAlreadyBound
	}
	if _, ok := r.idByNational[d.NationalID]; ok {
		return driverrepo.ErrDuplicateNationalID
	}
	if _, ok := r.idByToken[d.LookupToken]; ok {
		return driverrepo.ErrDuplicateLookupToken
	}

	r.byID[d.ID] = d
	r.idByIdentity[d.IdentityID] = d.ID
	r.idByToken[d.LookupToken] = d.ID
	r.idByNational[d.NationalID] = d.ID
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.DriverID) (domain.Driver, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	if !ok {
		return domain.Driver{}, driverrepo.ErrNotFound
	}
	return d, nil
}

func (r *Repo) GetByIdentity(ctx context.Context, identityID domain.IdentityID) (domain.Driver, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(r.idByIdentity[identityID])
}

func (r *Repo) GetByLookupToken(ctx context.Context, token domain.LookupToken) (domain.Driver, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(r.idByToken[token])
}

func (r *Repo) lookup(id domain.DriverID) (domain.Driver, error) {
	if id == "" {
		return domain.Driver{}, driverrepo.ErrNotFound
	}
	d, ok := r.byID[id]
	if !ok {
		return domain.Driver{}, driverrepo.ErrNotFound
	}
	return d, nil
}

func (r *Repo) Search(ctx context.Context, query string, limit int) ([]domain.Driver, error) {
	_ = ctx

	qTokens := tokenize(query)
	if len(qTokens) == 0 {
		return []domain.Driver{}, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Driver, 0)
	for _, d := range r.byID {
		if matchesAllTokens(d, qTokens) {
			out = append(out, d)
		}
	}
	sortDriversByName(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func searchText(d domain.Driver) string {
	return strings.ToLower(strings.Join([]string{
		d.FirstNames,
		d.LastNames,
		d.NationalID,
		d.Vehicle.Plate,
	}, " "))
}

func sortDriversByName(ds []domain.Driver) {
	sort.Slice(ds, func(i, j int) bool {
		li, lj := strings.ToLower(ds[i].LastNames), strings.ToLower(ds[j].LastNames)
		if li != lj {
			return li < lj
		}
		fi, fj := strings.ToLower(ds[i].FirstNames), strings.ToLower(ds[j].FirstNames)
		if fi != fj {
			return fi < fj
		}
		return string(ds[i].ID) < string(ds[j].ID)
	})
}

func tokenize(s string) []string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}

// matchesAllTokens reports whether every token appears in the driver's search
// text, or in its plate once the token is normalized like a plate.
func matchesAllTokens(d domain.Driver, tokens []string) bool {
	hay := searchText(d)
	plate := strings.ToLower(d.Vehicle.Plate)
	for _, t := range tokens {
		if strings.Contains(hay, t) {
			continue
		}
		if p := strings.ToLower(domain.NormalizePlate(t)); p != "" && strings.Contains(plate, p) {
			continue
		}
		return false
	}
	return true
}
