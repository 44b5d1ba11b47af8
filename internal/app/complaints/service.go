package complaints

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conductores/driver-registry-api/internal/app/apperr"
	"github.com/conductores/driver-registry-api/internal/domain"
	clockport "github.com/conductores/driver-registry-api/internal/ports/out/clock"
	"github.com/conductores/driver-registry-api/internal/ports/out/complaintrepo"
	"github.com/conductores/driver-registry-api/internal/ports/out/driverrepo"
)

const MaxTextRunes = 2000

type Metrics interface {
	IncComplaintsFiled()
}

type Service struct {
	drivers    driverrepo.Repository
	complaints complaintrepo.Repository
	clk        clockport.Clock
	log        *zap.Logger
	metrics    Metrics

	newComplaintID func() domain.ComplaintID
}

func NewService(drivers driverrepo.Repository, complaints complaintrepo.Repository, clk clockport.Clock, log *zap.Logger, metrics Metrics) *Service {
	return &Service{
		drivers:    drivers,
		complaints: complaints,
		clk:        clk,
		log:        log.Named("complaints"),
		metrics:    metrics,
		newComplaintID: func() domain.ComplaintID {
			return domain.ComplaintID(uuid.NewString())
		},
	}
}

// File records a complaint against the driver behind a lookup token.
func (s *Service) File(ctx context.Context, token domain.LookupToken, text string) (domain.Complaint, error) {
	text = strings.TrimSpace(text)
	if text == "" || utf8.RuneCountInString(text) > MaxTextRunes {
		return domain.Complaint{}, apperr.Validation("invalid complaint", map[string]any{
			"text": fmt.Sprintf("must be 1 to %d characters", MaxTextRunes),
		})
	}

	tok := domain.LookupToken(strings.TrimSpace(string(token)))
	if tok == "" {
		return domain.Complaint{}, profileNotFound()
	}
	d, err := s.drivers.GetByLookupToken(ctx, tok)
	if err != nil {
		if errors.Is(err, driverrepo.ErrNotFound) {
			return domain.Complaint{}, profileNotFound()
		}
		return domain.Complaint{}, fmt.Errorf("lookup driver: %w", err)
	}

	c := domain.Complaint{
		ID:        s.newComplaintID(),
		DriverID:  d.ID,
		Text:      text,
		CreatedAt: s.clk.Now().UTC(),
	}
	if err := s.complaints.Create(ctx, c); err != nil {
		if errors.Is(err, complaintrepo.ErrUnknownDriver) {
			return domain.Complaint{}, profileNotFound()
		}
		return domain.Complaint{}, fmt.Errorf("create complaint: %w", err)
	}

	s.metrics.IncComplaintsFiled()
	s.log.Info("complaint filed", zap.String("driver_id", string(d.ID)), zap.String("complaint_id", string(c.ID)))
	return c, nil
}

// ListForDriver returns a driver's complaints, newest first.
func (s *Service) ListForDriver(ctx context.Context, driverID domain.DriverID) ([]domain.Complaint, error) {
	cs, err := s.complaints.ListByDriver(ctx, driverID)
	if err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	return cs, nil
}

func profileNotFound() *apperr.Error {
	return apperr.NotFound("NOT_FOUND", "No driver profile exists for this code.")
}
