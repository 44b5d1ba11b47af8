package documentrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/conductores/driver-registry-api/internal/domain"
	"github.com/conductores/driver-registry-api/internal/ports/out/documentrepo"
)

// Repo is an in-memory implementation of documentrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	byID     map[domain.DocumentID]domain.Document
	byDriver map[domain.DriverID][]domain.DocumentID

	// FailCreate, when set, is returned from Create.
	FailCreate error
}

func NewRepo() *Repo {
	return &Repo{
		byID:     make(map[domain.DocumentID]domain.Document),
		byDriver: make(map[domain.DriverID][]domain.DocumentID),
	}
}

func (r *Repo) Create(ctx context.Context, d domain.Document) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailCreate != nil {
		return r.FailCreate
	}
	if _, ok := r.byID[d.ID]; ok || d.ID == "" {
		return documentrepo.ErrAlreadyExists
	}
	r.byID[d.ID] = d
	r.byDriver[d.DriverID] = append(r.byDriver[d.DriverID], d.ID)
	return nil
}

func (r *Repo) ListByDriver(ctx context.Context, driverID domain.DriverID) ([]domain.Document, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byDriver[driverID]
	out := make([]domain.Document, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.byID[id])
	}
	SortDocuments(out)
	return out, nil
}

// SortDocuments orders documents by allow-list position, then newest first, then ID.
func SortDocuments(ds []domain.Document) {
	rank := make(map[domain.DocumentType]int, len(domain.DocumentTypes))
	for i, t := range domain.DocumentTypes {
		rank[t] = i
	}
	sort.Slice(ds, func(i, j int) bool {
		if ri, rj := rank[ds[i].Type], rank[ds[j].Type]; ri != rj {
			return ri < rj
		}
		if !ds[i].CreatedAt.Equal(ds[j].CreatedAt) {
			return ds[i].CreatedAt.After(ds[j].CreatedAt)
		}
		return ds[i].ID < ds[j].ID
	})
}
