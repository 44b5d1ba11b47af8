package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/conductores/driver-registry-api/internal/app/apperr"
	"github.com/conductores/driver-registry-api/internal/ports/out/identityrepo"
	"github.com/conductores/driver-registry-api/internal/ports/out/tokens"
)

type PasswordChecker interface {
	Hash(plain string) ([]byte, error)
	Compare(hash []byte, plain string) error
}

type Service struct {
	identities identityrepo.Repository
	passwords  PasswordChecker
	issuer     tokens.Issuer
	log        *zap.Logger

	dummyOnce sync.Once
	dummyHash []byte
}

func NewService(identities identityrepo.Repository, passwords PasswordChecker, issuer tokens.Issuer, log *zap.Logger) *Service {
	return &Service{
		identities: identities,
		passwords:  passwords,
		issuer:     issuer,
		log:        log.Named("session"),
	}
}

var errInvalidCredentials = &apperr.Error{
	Status:  400,
	Code:    "INVALID_CREDENTIALS",
	Message: "Invalid email or password.",
}

// Login checks email and password and issues an access token. Unknown email
// and wrong password produce the same error.
func (s *Service) Login(ctx context.Context, email, password string) (tokens.AccessToken, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return tokens.AccessToken{}, apperr.Validation("invalid login", map[string]any{
			"email":    "required",
			"password": "required",
		})
	}

	ident, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, identityrepo.ErrNotFound) {
			// Unknown emails pay the same hashing cost as wrong passwords.
			_ = s.passwords.Compare(s.unknownIdentityHash(), password)
			return tokens.AccessToken{}, errInvalidCredentials
		}
		return tokens.AccessToken{}, fmt.Errorf("lookup identity: %w", err)
	}
	if err := s.passwords.Compare(ident.PasswordHash, password); err != nil {
		s.log.Debug("login rejected", zap.String("identity_id", string(ident.ID)))
		return tokens.AccessToken{}, errInvalidCredentials
	}

	tok, err := s.issuer.Issue(ctx, ident.ID, ident.Role)
	if err != nil {
		return tokens.AccessToken{}, fmt.Errorf("issue token: %w", err)
	}
	return tok, nil
}

func (s *Service) unknownIdentityHash() []byte {
	s.dummyOnce.Do(func() {
		h, err := s.passwords.Hash("unknown-identity")
		if err != nil {
			s.log.Warn("hash placeholder password", zap.Error(err))
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}
