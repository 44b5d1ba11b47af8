package identityrepo

import (
	"context"
	"strings"
	"sync"

	"github.com/conductores/driver-registry-api/internal/domain"
	"github.com/conductores/driver-registry-api/internal/ports/out/identityrepo"
)

// Repo is an in-memory implementation of identityrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	byID      map[domain.IdentityID]identityrepo.Identity
	idByEmail map[string]domain.IdentityID
}

func NewRepo() *Repo {
	return &Repo{
		byID:      make(map[domain.IdentityID]identityrepo.Identity),
		idByEmail: make(map[string]domain.IdentityID),
	}
}

func (r *Repo) Create(ctx context.Context, id identityrepo.Identity) error {
	_ = ctx
	if id.ID == "" {
		return identityrepo.ErrAlreadyExists
	}
	email := emailKey(id.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id.ID]; ok {
		return identityrepo.ErrAlreadyExists
	}
	if _, ok := r.idByEmail[email]; ok {
		return identityrepo.ErrEmailTaken
	}
	r.byID[id.ID] = cloneIdentity(id)
	r.idByEmail[email] = id.ID
	return nil
}

func (r *Repo) Delete(ctx context.Context, id domain.IdentityID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[id]
	if !ok {
		return identityrepo.ErrNotFound
	}
	delete(r.byID, id)
	delete(r.idByEmail, emailKey(existing.Email))
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.IdentityID) (identityrepo.Identity, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	got, ok := r.byID[id]
	if !ok {
		return identityrepo.Identity{}, identityrepo.ErrNotFound
	}
	return cloneIdentity(got), nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (identityrepo.Identity, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.idByEmail[emailKey(email)]
	if !ok {
		return identityrepo.Identity{}, identityrepo.ErrNotFound
	}
	return cloneIdentity(r.byID[id]), nil
}

// Len reports how many identities are stored.
func (r *Repo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func cloneIdentity(id identityrepo.Identity) identityrepo.Identity {
	out := id
	if id.PasswordHash != nil {
		out.PasswordHash = append([]byte(nil), id.PasswordHash...)
	}
	return out
}
