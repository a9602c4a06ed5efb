// Package service holds the application services behind the gRPC surface.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/and161185/vidgraph/internal/crypto"
	"github.com/and161185/vidgraph/internal/errs"
	"github.com/and161185/vidgraph/internal/metrics"
	"github.com/and161185/vidgraph/internal/model"
	"github.com/and161185/vidgraph/internal/repository"
)

// DefaultSessionTTL is the lifetime of an issued session credential.
const DefaultSessionTTL = 7 * 24 * time.Hour

// AuthService exchanges platform assertions for session credentials.
type AuthService interface {
	// Login verifies raw with the secret named secretID and issues a session.
	// An empty secretID selects the default secret.
	Login(ctx context.Context, raw, secretID string) (model.Session, model.User, error)
	// Validate checks a credential and returns its claims.
	Validate(token string) (model.Session, error)
	// Me returns the account behind a validated session.
	Me(ctx context.Context, id model.InternalID) (model.User, error)
}

// AuthConfig carries the key material and policy of AuthServiceImpl.
type AuthConfig struct {
	// Secrets maps a secret identifier (bot name) to the bot token.
	Secrets       map[string][]byte
	DefaultSecret string
	SignKey       []byte
	TTL           time.Duration
	Verify        crypto.VerifyOptions
}

type AuthServiceImpl struct {
	users repository.UserRepository
	cfg   AuthConfig
	log   *zap.Logger
	rec   metrics.Recorder
	now   func() time.Time
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, cfg AuthConfig, log *zap.Logger, rec metrics.Recorder) *AuthServiceImpl {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultSessionTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &AuthServiceImpl{users: users, cfg: cfg, log: log, rec: rec, now: time.Now}
}

// sessionClaims is the JWT payload. Subject holds the internal account id.
type sessionClaims struct {
	ExternalID int64  `json:"tid"`
	Handle     string `json:"handle"`
	jwt.RegisteredClaims
}

// Login verifies the assertion, resolves the provisioned account, syncs its
// profile and mints a session. Accounts are never created here.
func (s *AuthServiceImpl) Login(ctx context.Context, raw, secretID string) (model.Session, model.User, error) {
	if secretID == "" {
		secretID = s.cfg.DefaultSecret
	}
	secret, ok := s.cfg.Secrets[secretID]
	if !ok {
		s.reject("unknown_secret", secretID, errs.ErrSignatureInvalid)
		return model.Session{}, model.User{}, errs.ErrSignatureInvalid
	}

	now := s.now()
	p, err := crypto.Verify(raw, secret, now.Unix(), s.cfg.Verify)
	if err != nil {
		s.reject(failureReason(err), secretID, err)
		return model.Session{}, model.User{}, err
	}

	u, err := s.users.GetByExternalID(ctx, p.ExternalID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			s.reject("unregistered_identity", secretID, err)
			return model.Session{}, model.User{}, errs.ErrUnregisteredIdentity
		}
		return model.Session{}, model.User{}, err
	}

	u, err = s.users.SyncProfile(ctx, u.ID, model.ProfileSync{
		Username:  p.Username,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		AvatarURL: p.AvatarURL,
	})
	if err != nil {
		return model.Session{}, model.User{}, fmt.Errorf("sync profile: %w", err)
	}

	sess, err := s.issue(u, now)
	if err != nil {
		return model.Session{}, model.User{}, err
	}
	return sess, *u, nil
}

func (s *AuthServiceImpl) reject(reason, secretID string, err error) {
	s.rec.RecordAuthFailure(reason)
	s.log.Warn("login rejected",
		zap.String("reason", reason),
		zap.String("secret_id", secretID),
		zap.Error(err),
	)
}

// issue signs an HS256 JWT for u.
func (s *AuthServiceImpl) issue(u *model.User, now time.Time) (model.Session, error) {
	jti, err := uuid.NewV4()
	if err != nil {
		return model.Session{}, err
	}
	iat := now.Truncate(time.Second)
	exp := iat.Add(s.cfg.TTL)
	claims := sessionClaims{
		ExternalID: int64(u.ExternalID),
		Handle:     u.Handle,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			ID:        jti.String(),
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.SignKey)
	if err != nil {
		return model.Session{}, fmt.Errorf("sign session: %w", err)
	}
	return model.Session{
		Token:          signed,
		TokenID:        jti.String(),
		SubjectID:      u.ID,
		ExternalID:     u.ExternalID,
		PlatformHandle: u.Handle,
		IssuedAt:       iat,
		ExpiresAt:      exp,
	}, nil
}

// Validate accepts only HS256 credentials signed with the configured key.
// Expiry yields errs.ErrSessionExpired; every other defect errs.ErrSessionInvalid.
func (s *AuthServiceImpl) Validate(token string) (model.Session, error) {
	var c sessionClaims
	_, err := jwt.ParseWithClaims(token, &c,
		func(*jwt.Token) (any, error) { return s.cfg.SignKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			s.rec.RecordAuthFailure("session_expired")
			return model.Session{}, errs.ErrSessionExpired
		}
		s.rec.RecordAuthFailure("session_invalid")
		return model.Session{}, errs.ErrSessionInvalid
	}

	sub, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || sub <= 0 || c.ExternalID <= 0 || c.IssuedAt == nil {
		s.rec.RecordAuthFailure("session_invalid")
		return model.Session{}, errs.ErrSessionInvalid
	}
	return model.Session{
		Token:          token,
		TokenID:        c.ID,
		SubjectID:      model.InternalID(sub),
		ExternalID:     model.ExternalID(c.ExternalID),
		PlatformHandle: c.Handle,
		IssuedAt:       c.IssuedAt.Time,
		ExpiresAt:      c.ExpiresAt.Time,
	}, nil
}

// Me loads the session's account. A session whose account is gone is invalid.
func (s *AuthServiceImpl) Me(ctx context.Context, id model.InternalID) (model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.User{}, errs.ErrSessionInvalid
		}
		return model.User{}, err
	}
	return *u, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, errs.ErrMalformedPayload):
		return "malformed_payload"
	case errors.Is(err, errs.ErrSignatureInvalid):
		return "signature_invalid"
	case errors.Is(err, errs.ErrAssertionExpired):
		return "assertion_expired"
	default:
		return "other"
	}
}
