package registration

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conductores/driver-registry-api/internal/app/apperr"
	"github.com/conductores/driver-registry-api/internal/domain"
	clockport "github.com/conductores/driver-registry-api/internal/ports/out/clock"
	"github.com/conductores/driver-registry-api/internal/ports/out/driverrepo"
	"github.com/conductores/driver-registry-api/internal/ports/out/identityrepo"
)

const (
	minPasswordLen = 8
	// lookupTokenAttempts bounds retries on a lookup token collision.
	lookupTokenAttempts = 3
)

type PasswordHasher interface {
	Hash(plain string) ([]byte, error)
}

type Metrics interface {
	IncDriversRegistered()
	IncRollback(ok bool)
}

type Service struct {
	identities identityrepo.Repository
	drivers    driverrepo.Repository
	hasher     PasswordHasher
	clk        clockport.Clock
	log        *zap.Logger
	metrics    Metrics

	newIdentityID  func() domain.IdentityID
	newDriverID    func() domain.DriverID
	newLookupToken func() (domain.LookupToken, error)
}

func NewService(
	identities identityrepo.Repository,
	drivers driverrepo.Repository,
	hasher PasswordHasher,
	clk clockport.Clock,
	log *zap.Logger,
	metrics Metrics,
) *Service {
	return &Service{
		identities: identities,
		drivers:    drivers,
		hasher:     hasher,
		clk:        clk,
		log:        log.Named("registration"),
		metrics:    metrics,
		newIdentityID: func() domain.IdentityID {
			return domain.IdentityID(uuid.NewString())
		},
		newDriverID: func() domain.DriverID {
			return domain.DriverID(uuid.NewString())
		},
		newLookupToken: NewLookupToken,
	}
}

// NewLookupToken returns 16 random bytes as 32 lowercase hex characters.
func NewLookupToken() (domain.LookupToken, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generate lookup token: %w", err)
	}
	return domain.LookupToken(hex.EncodeToString(b[:])), nil
}

// Register creates an identity and then its driver profile. If the profile
// insert fails the identity is deleted, so a failed registration leaves no
// identity behind unless that delete fails too.
func (s *Service) Register(ctx context.Context, in Input) (Registration, error) {
	in, err := normalize(in)
	if err != nil {
		return Registration{}, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Registration{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.clk.Now().UTC()
	ident := identityrepo.Identity{
		ID:           s.newIdentityID(),
		Email:        in.Email,
		PasswordHash: hash,
		Role:         domain.RoleDriver,
		CreatedAt:    now,
	}
	if err := s.identities.Create(ctx, ident); err != nil {
		if errors.Is(err, identityrepo.ErrEmailTaken) {
			return Registration{}, &apperr.Error{
				Status:  400,
				Code:    "EMAIL_TAKEN",
				Message: "An account already exists for this email address.",
				Details: map[string]any{"email": "already registered"},
			}
		}
		return Registration{}, &apperr.Error{
			Status:  400,
			Code:    "REGISTRATION_FAILED",
			Message: "Could not create the account.",
			Cause:   err,
		}
	}

	drv := domain.Driver{
		ID:            s.newDriverID(),
		IdentityID:    ident.ID,
		FirstNames:    in.FirstNames,
		LastNames:     in.LastNames,
		NationalID:    in.NationalID,
		LicenseNumber: in.LicenseNumber,
		Phone:         in.Phone,
		Address:       in.Address,
		Vehicle: domain.Vehicle{
			Plate:        in.Plate,
			Make:         in.VehicleMake,
			Model:        in.VehicleModel,
			Color:        in.VehicleColor,
			PolicyNumber: in.PolicyNumber,
		},
		CreatedAt: now,
	}
	if err := s.insertDriver(ctx, &drv); err != nil {
		s.rollbackIdentity(ctx, ident.ID, err)
		return Registration{}, insertError(err)
	}

	s.metrics.IncDriversRegistered()
	s.log.Info("driver registered",
		zap.String("driver_id", string(drv.ID)),
		zap.String("identity_id", string(ident.ID)),
	)
	return Registration{
		IdentityID:  ident.ID,
		DriverID:    drv.ID,
		LookupToken: drv.LookupToken,
	}, nil
}

func (s *Service) insertDriver(ctx context.Context, drv *domain.Driver) error {
	var err error
	for attempt := 0; attempt < lookupTokenAttempts; attempt++ {
		if drv.LookupToken, err = s.newLookupToken(); err != nil {
			return err
		}
		err = s.drivers.Create(ctx, *drv)
		if !errors.Is(err, driverrepo.ErrDuplicateLookupToken) {
			return err
		}
	}
	return err
}

// rollbackIdentity is the compensating action for a failed profile insert.
// It runs on a context detached from cancellation.
func (s *Service) rollbackIdentity(ctx context.Context, id domain.IdentityID, cause error) {
	err := s.identities.Delete(context.WithoutCancel(ctx), id)
	if err != nil {
		s.metrics.IncRollback(false)
		s.log.Error("identity rollback failed; identity is orphaned",
			zap.String("identity_id", string(id)),
			zap.NamedError("insert_error", cause),
			zap.NamedError("rollback_error", err),
		)
		return
	}
	s.metrics.IncRollback(true)
	s.log.Warn("driver insert failed; identity rolled back",
		zap.String("identity_id", string(id)),
		zap.Error(cause),
	)
}

func insertError(err error) *apperr.Error {
	switch {
	case errors.Is(err, driverrepo.ErrDuplicateNationalID):
		return &apperr.Error{
			Status:  400,
			Code:    "NATIONAL_ID_TAKEN",
			Message: "A driver is already registered with this national ID.",
			Details: map[string]any{"nationalId": "already registered"},
			Cause:   err,
		}
	default:
		return &apperr.Error{
			Status:  400,
			Code:    "REGISTRATION_FAILED",
			Message: "Could not create the driver profile.",
			Cause:   err,
		}
	}
}

func normalize(in Input) (Input, error) {
	details := map[string]any{}

	in.Email = strings.TrimSpace(in.Email)
	if err := validateEmail(in.Email); err != nil {
		details["email"] = err.Error()
	}
	if len([]rune(in.Password)) < minPasswordLen {
		details["password"] = fmt.Sprintf("must be at least %d characters", minPasswordLen)
	}

	in.FirstNames = domain.NormalizeHumanName(in.FirstNames)
	in.LastNames = domain.NormalizeHumanName(in.LastNames)
	in.NationalID = strings.TrimSpace(in.NationalID)
	in.Plate = domain.NormalizePlate(in.Plate)
	required := []struct {
		field, value string
	}{
		{"firstNames", in.FirstNames},
		{"lastNames", in.LastNames},
		{"nationalId", in.NationalID},
		{"plate", in.Plate},
	}
	for _, r := range required {
		if r.value == "" {
			details[r.field] = "must be non-empty"
		}
	}

	in.LicenseNumber = strings.TrimSpace(in.LicenseNumber)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = domain.NormalizeHumanName(in.Address)
	in.VehicleMake = domain.NormalizeHumanName(in.VehicleMake)
	in.VehicleModel = domain.NormalizeHumanName(in.VehicleModel)
	in.VehicleColor = domain.NormalizeHumanName(in.VehicleColor)
	in.PolicyNumber = strings.TrimSpace(in.PolicyNumber)

	if len(details) > 0 {
		return Input{}, apperr.Validation("invalid registration", details)
	}
	return in, nil
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("must be non-empty")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return errors.New("must be a valid email address")
	}
	// Reject "Name <email@x>".
	if addr.Address != email {
		return errors.New("must be a bare email address")
	}
	return nil
}
