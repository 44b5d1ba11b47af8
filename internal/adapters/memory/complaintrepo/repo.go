package complaintrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/conductores/driver-registry-api/internal/domain"
	"github.com/conductores/driver-registry-api/internal/ports/out/complaintrepo"
)

// Repo is an in-memory implementation of complaintrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	byID     map[domain.ComplaintID]domain.Complaint
	byDriver map[domain.DriverID][]domain.ComplaintID
}

func NewRepo() *Repo {
	return &Repo{
		byID:     make(map[domain.ComplaintID]domain.Complaint),
		byDriver: make(map[domain.DriverID][]domain.ComplaintID),
	}
}

func (r *Repo) Create(ctx context.Context, c domain.Complaint) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[c.ID]; ok || c.ID == "" {
		return complaintrepo.ErrAlreadyExists
	}
	r.byID[c.ID] = c
	r.byDriver[c.DriverID] = append(r.byDriver[c.DriverID], c.ID)
	return nil
}

func (r *Repo) ListByDriver(ctx context.Context, driverID domain.DriverID) ([]domain.Complaint, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byDriver[driverID]
	out := make([]domain.Complaint, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.byID[id])
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
