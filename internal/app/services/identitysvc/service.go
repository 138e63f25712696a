// Package identitysvc manages user accounts, credential verification
// and token issuance.
package identitysvc

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/atlaslab/labmanager/internal/app/domain/identity"
	"github.com/atlaslab/labmanager/internal/app/storage"
	"github.com/atlaslab/labmanager/internal/errors"
	"github.com/atlaslab/labmanager/pkg/logger"
)

// Config holds token issuance settings.
type Config struct {
	JWTSecret string
	TokenTTL  time.Duration
	Issuer    string
}

// Service manages users and authentication.
type Service struct {
	backend storage.Backend
	cfg     Config
	log     *logger.Logger
	now     func() time.Time
}

// New constructs an identity service.
func New(backend storage.Backend, cfg Config, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("identity")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 12 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "labmanager"
	}
	return &Service{backend: backend, cfg: cfg, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Claims is the JWT payload carried by API tokens.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// UserInput carries the fields for account creation and edits.
type UserInput struct {
	Email    string
	FullName string
	Role     identity.Role
	Password string
}

// Register creates a user account.
func (s *Service) Register(ctx context.Context, in UserInput) (identity.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return identity.User{}, errors.Validation("a valid email is required")
	}
	if !in.Role.Valid() {
		return identity.User{}, errors.Validation("unknown role").WithDetails("role", string(in.Role))
	}
	if len(in.Password) < 8 {
		return identity.User{}, errors.Validation("password must be at least 8 characters")
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return identity.User{}, err
	}
	created, err := s.backend.CreateUser(ctx, identity.User{
		Email:        email,
		FullName:     strings.TrimSpace(in.FullName),
		Role:         in.Role,
		PasswordHash: hash,
		Active:       true,
	})
	if err != nil {
		if stderrors.Is(err, storage.ErrDuplicate) {
			return identity.User{}, errors.Conflict("a user with this email already exists")
		}
		return identity.User{}, err
	}

	s.log.WithField("user_id", created.ID).WithField("role", string(created.Role)).Info("user registered")
	return created, nil
}

// Login verifies credentials, records the attempt, and issues a token.
// The same unauthorized error is returned for every failure mode so
// the response does not reveal whether the account exists.
func (s *Service) Login(ctx context.Context, email, password, ip, userAgent string) (string, identity.User, error) {
	badCreds := errors.Unauthorized("invalid email or password")

	user, err := s.backend.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return "", identity.User{}, badCreds
		}
		return "", identity.User{}, err
	}

	ok := user.Active && VerifyPassword(password, user.PasswordHash)
	if _, err := s.backend.RecordLogin(ctx, identity.LoginRecord{
		UserID: user.ID, IP: ip, UserAgent: userAgent, Success: ok,
	}); err != nil {
		s.log.WithError(err).Warn("failed to record login attempt")
	}
	if !ok {
		s.log.WithField("user_id", user.ID).WithField("ip", ip).Warn("login rejected")
		return "", identity.User{}, badCreds
	}

	now := s.now()
	user.LastLoginAt = &now
	if user, err = s.backend.UpdateUser(ctx, user); err != nil {
		return "", identity.User{}, err
	}

	token, err := s.issueToken(user)
	if err != nil {
		return "", identity.User{}, err
	}
	s.log.WithField("user_id", user.ID).Info("login succeeded")
	return token, user, nil
}

func (s *Service) issueToken(user identity.User) (string, error) {
	now := s.now()
	claims := Claims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   fmt.Sprintf("%d", user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken parses a token and returns the actor it represents.
func (s *Service) VerifyToken(tokenString string) (identity.Actor, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithIssuer(s.cfg.Issuer))
	if err != nil || !token.Valid {
		return identity.Actor{}, errors.InvalidToken(err)
	}

	var userID int64
	if _, err := fmt.Sscanf(claims.Subject, "%d", &userID); err != nil {
		return identity.Actor{}, errors.InvalidToken(err)
	}
	role := identity.Role(claims.Role)
	if !role.Valid() {
		return identity.Actor{}, errors.InvalidToken(fmt.Errorf("unknown role %q", claims.Role))
	}
	return identity.Actor{UserID: userID, Role: role}, nil
}

// Impersonate returns an actor acting on behalf of another user. Only
// super administrators may impersonate.
func (s *Service) Impersonate(ctx context.Context, actor identity.Actor, targetUserID int64) (identity.Actor, error) {
	if actor.Role != identity.RoleSuperAdministrator {
		return identity.Actor{}, errors.Forbidden("only super administrators may act on behalf of other users")
	}
	if _, err := s.Get(ctx, targetUserID); err != nil {
		return identity.Actor{}, err
	}
	actor.ActingAs = &targetUserID
	return actor, nil
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, id int64) (identity.User, error) {
	u, err := s.backend.GetUser(ctx, id)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return identity.User{}, errors.NotFound("user not found")
		}
		return identity.User{}, err
	}
	return u, nil
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]identity.User, error) {
	return s.backend.ListUsers(ctx)
}

// SetActive enables or disables an account.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) (identity.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return identity.User{}, err
	}
	u.Active = active
	return s.backend.UpdateUser(ctx, u)
}

// LoginHistory returns a user's recent login attempts.
func (s *Service) LoginHistory(ctx context.Context, userID int64, limit int) ([]identity.LoginRecord, error) {
	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}
	return s.backend.ListLogins(ctx, userID, limit)
}
