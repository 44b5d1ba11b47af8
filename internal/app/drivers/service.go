package drivers

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

// Profile is the authenticated driver's own view.
type Profile struct {
	Driver     domain.Driver
	Documents  []domain.ResolvedDocument
	Complaints []domain.Complaint
}

type DocumentResolver interface {
	ResolveForDriver(ctx context.Context, driverID domain.DriverID) ([]domain.ResolvedDocument, error)
}

type ComplaintLister interface {
	ListForDriver(ctx context.Context, driverID domain.DriverID) ([]domain.Complaint, error)
}

type Service struct {
	repo       driverrepo.Repository
	documents  DocumentResolver
	complaints ComplaintLister

	// SearchLimit bounds search result size.
	SearchLimit int
}

func NewService(repo driverrepo.Repository, documents DocumentResolver, complaints ComplaintLister) *Service {
	return &Service{
		repo:        repo,
		documents:   documents,
		complaints:  complaints,
		SearchLimit: 50,
	}
}

func (s *Service) Me(ctx context.Context, caller domain.IdentityID) (Profile, error) {
	d, err := s.repo.GetByIdentity(ctx, caller)
	if err != nil {
		if errors.Is(err, driverrepo.ErrNotFound) {
			return Profile{}, apperr.NotFound("DRIVER_NOT_FOUND", "No driver profile exists for the authenticated identity.")
		}
		return Profile{}, fmt.Errorf("load driver: %w", err)
	}

	out := Profile{Driver: d}
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
		return Profile{}, err
	}
	return out, nil
}

func (s *Service) Search(ctx context.Context, query string) ([]domain.Driver, error) {
	q := strings.TrimSpace(query)
	if len([]rune(q)) < 3 {
		return nil, &apperr.Error{
			Status:  422,
			Code:    "VALIDATION_ERROR",
			Message: "invalid search query",
			Details: map[string]any{"q": "must be at least 3 characters"},
		}
	}
	ds, err := s.repo.Search(ctx, q, s.SearchLimit)
	if err != nil {
		return nil, err
	}
	return ds, nil
}
