package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/08star/my-auth-app/config"
	"github.com/08star/my-auth-app/internal/application/dto"
	"github.com/08star/my-auth-app/internal/domain/session"
	"github.com/08star/my-auth-app/internal/domain/user"
	"github.com/08star/my-auth-app/pkg/errors"
	"github.com/08star/my-auth-app/pkg/jwt"
	"github.com/08star/my-auth-app/pkg/logger"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 80
)

// PasswordHasher hashes and checks credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
	NeedsRehash(encoded string) (bool, error)
}

// AccountService is the account directory: registration, credential checks,
// the active flag and login sessions.
type AccountService struct {
	userRepo   user.Repository
	sessions   session.Registry
	hasher     PasswordHasher
	jwtManager *jwt.Manager
	cfg        *config.Config
	log        logger.Logger

	// compared against when the username is unknown, so a miss costs
	// the same as a wrong password
	dummyHash string
}

// NewAccountService creates a new account service.
func NewAccountService(
	userRepo user.Repository,
	sessions session.Registry,
	hasher PasswordHasher,
	jwtManager *jwt.Manager,
	cfg *config.Config,
	log logger.Logger,
) (*AccountService, error) {
	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare dummy hash")
	}
	return &AccountService{
		userRepo:   userRepo,
		sessions:   sessions,
		hasher:     hasher,
		jwtManager: jwtManager,
		cfg:        cfg,
		log:        log.With(logger.Component("accounts")),
		dummyHash:  dummy,
	}, nil
}

// Register creates a new, active account.
func (s *AccountService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, errors.NewValidationError("username", "username and password required")
	}
	if n := utf8.RuneCountInString(username); n < minUsernameLength || n > maxUsernameLength {
		return nil, errors.NewValidationError("username", "username must be 3-80 characters")
	}
	if utf8.RuneCountInString(req.Password) < s.cfg.Auth.MinPasswordLength {
		return nil, errors.NewValidationError("password", "password too short")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password")
	}

	u := user.NewUser(username, hash)
	if err := s.userRepo.Create(ctx, u); err != nil {
		if errors.Is(err, errors.ErrUserAlreadyExists) {
			return nil, err
		}
		return nil, errors.Wrap(err, "failed to create user")
	}

	s.log.Info("user registered", logger.UserID(u.ID.String()), logger.String("username", u.Username))

	return &dto.RegisterResponse{
		Msg:      "user created",
		UserID:   u.ID,
		Username: u.Username,
	}, nil
}

// Authenticate checks a username and password and returns the user's ID.
// Unknown users and wrong passwords are both ErrInvalidCredentials.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (uuid.UUID, error) {
	u, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, errors.ErrUserNotFound) {
			_, _ = s.hasher.Verify(password, s.dummyHash)
			return uuid.Nil, errors.ErrInvalidCredentials
		}
		return uuid.Nil, errors.Wrap(err, "failed to get user")
	}

	valid, err := s.hasher.Verify(password, u.PasswordHash)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "failed to verify password")
	}
	if !valid {
		return uuid.Nil, errors.ErrInvalidCredentials
	}

	if !u.IsActive() {
		return uuid.Nil, errors.ErrAccountDisabled
	}

	if stale, _ := s.hasher.NeedsRehash(u.PasswordHash); stale {
		if newHash, err := s.hasher.Hash(password); err == nil {
			if err := s.userRepo.UpdatePassword(ctx, u.ID, newHash); err != nil {
				s.log.Warn("password rehash failed", logger.UserID(u.ID.String()), logger.Error(err))
			}
		}
	}

	return u.ID, nil
}

// Login authenticates and opens a session with a bearer token bound to it.
func (s *AccountService) Login(ctx context.Context, req *dto.LoginRequest, userAgent, ipAddress string) (*dto.LoginResponse, error) {
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return nil, errors.NewValidationError("username", "username and password required")
	}

	userID, err := s.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}

	sess := session.NewSession(userID, ipAddress, userAgent, s.jwtManager.TTL())
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, errors.Wrap(err, "failed to create session")
	}

	token, _, err := s.jwtManager.CreateAccessToken(userID, sess.ID)
	if err != nil {
		_ = s.sessions.Destroy(ctx, sess.ID)
		return nil, err
	}

	s.log.Info("user logged in", logger.UserID(userID.String()), logger.ClientIP(ipAddress))

	return &dto.LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.jwtManager.TTL().Seconds()),
		SessionID:   sess.ID,
	}, nil
}

// ValidateToken resolves a bearer token to its live session. The account
// must still be active.
func (s *AccountService) ValidateToken(ctx context.Context, token string) (*session.Session, error) {
	claims, err := s.jwtManager.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}

	sessionID, err := claims.SessionUUID()
	if err != nil {
		return nil, errors.ErrTokenInvalid
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, errors.ErrTokenInvalid
	}

	sess, err := s.sessions.Lookup(ctx, sessionID)
	if err != nil {
		if errors.Is(err, errors.ErrSessionNotFound) {
			return nil, errors.ErrTokenInvalid
		}
		return nil, err
	}
	if sess.UserID != userID {
		return nil, errors.ErrTokenInvalid
	}

	active, err := s.IsActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, errors.ErrAccountDisabled
	}
	return sess, nil
}

// Logout destroys the session.
func (s *AccountService) Logout(ctx context.Context, sessionID uuid.UUID) error {
	if err := s.sessions.Destroy(ctx, sessionID); err != nil {
		return errors.Wrap(err, "failed to destroy session")
	}
	return nil
}

// IsActive reports whether the account may act. Unknown users are not active.
func (s *AccountService) IsActive(ctx context.Context, userID uuid.UUID) (bool, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, errors.ErrUserNotFound) {
			return false, nil
		}
		return false, errors.Wrap(err, "failed to get user")
	}
	return u.IsActive(), nil
}

// SetActive toggles the account. Disabling it also ends every session.
func (s *AccountService) SetActive(ctx context.Context, userID uuid.UUID, active bool) error {
	if err := s.userRepo.SetActive(ctx, userID, active); err != nil {
		return err
	}

	fields := []logger.Field{logger.UserID(userID.String()), logger.Bool("active", active)}
	if !active {
		n, err := s.sessions.DestroyByUser(ctx, userID)
		if err != nil {
			return errors.Wrap(err, "failed to end sessions")
		}
		fields = append(fields, logger.Int("sessions_ended", n))
	}
	s.log.Info("user active flag changed", fields...)
	return nil
}

// SetActiveByUsername is SetActive addressed by login handle.
func (s *AccountService) SetActiveByUsername(ctx context.Context, username string, active bool) (uuid.UUID, error) {
	u, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return uuid.Nil, err
	}
	return u.ID, s.SetActive(ctx, u.ID, active)
}

// GetUser returns the admin view of one account.
func (s *AccountService) GetUser(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toUserResponse(u), nil
}

// LookupUsername resolves a login handle to the account's ID.
func (s *AccountService) LookupUsername(ctx context.Context, username string) (uuid.UUID, error) {
	u, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return uuid.Nil, err
	}
	return u.ID, nil
}

// ListUsers returns every account.
func (s *AccountService) ListUsers(ctx context.Context) ([]dto.UserResponse, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, *toUserResponse(u))
	}
	return out, nil
}

func toUserResponse(u *user.User) *dto.UserResponse {
	return &dto.UserResponse{
		UserID:    u.ID,
		Username:  u.Username,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
	}
}
