package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/conductores/driver-registry-api/internal/app/apperr"
	"github.com/conductores/driver-registry-api/internal/domain"
	"github.com/conductores/driver-registry-api/internal/ports/out/driverrepo"
)

// PublicProfile is what anyone holding a lookup token may see.
type PublicProfile struct {
	Driver     domain.PublicDriver
	Documents  []domain.ResolvedDocument
	Complaints []domain.Complaint
}

type DocumentResolver interface {
	ResolveForDriver(ctx context.Context, driverID domain.DriverID) ([]domain.ResolvedDocument, error)
}

type ComplaintLister interface {
	ListForDriver(ctx context.Context, driverID domain.DriverID) ([]domain.Complaint, error)
}

type Metrics interface {
	IncProfileLookup(found bool)
}

type Service struct {
	drivers    driverrepo.Repository
	documents  DocumentResolver
	complaints ComplaintLister
	metrics    Metrics
}

func NewService(drivers driverrepo.Repository, documents DocumentResolver, complaints ComplaintLister, metrics Metrics) *Service {
	return &Service{drivers: drivers, documents: documents, complaints: complaints, metrics: metrics}
}

// Resolve looks up a driver by lookup token. Unknown or blank tokens are a
// 404, never a server error. Documents and complaints load concurrently.
func (s *Service) Resolve(ctx context.Context, token domain.LookupToken) (PublicProfile, error) {
	tok := domain.LookupToken(strings.TrimSpace(string(token)))
	if tok == "" {
		s.metrics.IncProfileLookup(false)
		return PublicProfile{}, notFound()
	}

	d, err := s.drivers.GetByLookupToken(ctx, tok)
	if err != nil {
		if errors.Is(err, driverrepo.ErrNotFound) {
			s.metrics.IncProfileLookup(false)
			return PublicProfile{}, notFound()
		}
		return PublicProfile{}, fmt.Errorf("lookup driver: %w", err)
	}

	out := PublicProfile{Driver: d.Public()}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		docs, err := s.documents.ResolveForDriver(gctx, d.ID)
		out.Documents = docs
		return err
	})
	g.Go(func() error {
		cs, err := s.complaints.ListForDriver(gctx, d.ID)
		out.Complaints = cs
		return err
	})
	if err := g.Wait(); err != nil {
		return PublicProfile{}, err
	}

	s.metrics.IncProfileLookup(true)
	return out, nil
}

func notFound() *apperr.Error {
	return apperr.NotFound("NOT_FOUND", "No driver profile exists for this code.")
}
