package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Jonathanferreras/watch-the-hutch/internal/model"
	"github.com/Jonathanferreras/watch-the-hutch/internal/security"
	"github.com/Jonathanferreras/watch-the-hutch/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrForbidden          = errors.New("insufficient privileges")
	ErrValidation         = errors.New("validation failed")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrAdminNotFound      = errors.New("admin not found")
)

// DefaultSessionTTL is how long an admin session token stays valid.
const DefaultSessionTTL = 2 * time.Hour

// AdminStore is the persistence the auth service needs.
type AdminStore interface {
	FindAdminByUsername(ctx context.Context, username string) (*model.Admin, error)
	FindAdminByID(ctx context.Context, id int64) (*model.Admin, error)
	InsertAdmin(ctx context.Context, admin *model.Admin) error
	TouchLastLogin(ctx context.Context, id int64) error
	SetAdminActive(ctx context.Context, id int64, active bool) error
	DeleteAdmin(ctx context.Context, id int64) error
	ListAdmins(ctx context.Context) ([]model.Admin, error)
}

// Outcome classifies the result of authorizing a request.
type Outcome int

const (
	Unauthenticated Outcome = iota
	Authenticated
	Forbidden
)

func (o Outcome) String() string {
	switch o {
	case Authenticated:
		return "authenticated"
	case Forbidden:
		return "forbidden"
	default:
		return "unauthenticated"
	}
}

// AuthResult is the outcome of AuthorizeRequest. Admin is set only when
// Outcome is Authenticated. Reason is for logs and is never sent to clients.
type AuthResult struct {
	Outcome Outcome
	Admin   *model.Admin
	Reason  string
}

// Session is returned by a successful login.
type Session struct {
	Admin     *model.Admin
	Token     string
	ExpiresIn time.Duration
}

// AuthService authenticates admins and authorizes their session tokens.
type AuthService struct {
	store  AdminStore
	tokens *security.TokenService
	ttl    time.Duration
	logger *slog.Logger

	// dummyHash is verified against when the username is unknown so that
	// lookups for missing and existing users take similar time.
	dummyHash string

	// verifyPassword is security.VerifyPassword, replaceable in tests.
	verifyPassword func(password, credential string) bool
}

// fallbackDummyHash is a well-formed credential for a random password. It is
// only used when a fresh salt cannot be generated.
const fallbackDummyHash = "q0W3e3JkYFX6yQ2cQx3T0mJvN8wYk1l7a2Hh4sE9rZo=:" +
	"Jb1m8sQ0yV5pK3dF6hW2nR9tX4cL7aE1gU0iO8zB3vM="

// NewAuthService creates an AuthService. A zero ttl selects DefaultSessionTTL.
// tokens may be nil for operator tooling that never calls Authenticate or
// AuthorizeRequest.
func NewAuthService(st AdminStore, tokens *security.TokenService, ttl time.Duration, logger *slog.Logger) *AuthService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	dummy, err := security.HashPassword("hutch-timing-equalizer")
	if err != nil {
		logger.Error("failed to derive timing equalizer hash, using fallback", "error", err)
		dummy = fallbackDummyHash
	}
	return &AuthService{
		store:     st,
		tokens:    tokens,
		ttl:       ttl,
		logger:    logger,
		dummyHash: dummy,

		verifyPassword: security.VerifyPassword,
	}
}

// SessionTTL reports the lifetime of issued session tokens.
func (s *AuthService) SessionTTL() time.Duration {
	return s.ttl
}

// Authenticate checks a username and password and issues a session token.
// Unknown users, wrong passwords and inactive accounts all return
// ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*Session, error) {
	admin, err := s.store.FindAdminByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.verifyPassword(password, s.dummyHash)
			s.logger.Info("login failed", "username", username, "reason", "unknown user")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("look up admin: %w", err)
	}

	// Verify before looking at the active flag so every failure costs one
	// key derivation.
	passwordOK := s.verifyPassword(password, admin.PasswordHash)
	if !admin.IsActive {
		s.logger.Warn("login attempt for inactive admin", "username", username)
		return nil, ErrInvalidCredentials
	}
	if !passwordOK {
		s.logger.Info("login failed", "username", username, "reason", "bad password")
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.IssueToken(admin.ID, admin.Username, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	if err := s.store.TouchLastLogin(ctx, admin.ID); err != nil {
		s.logger.Warn("failed to record last login", "admin_id", admin.ID, "error", err)
	} else {
		now := time.Now().UTC()
		admin.LastLoginAt = &now
	}

	s.logger.Info("admin logged in", "admin_id", admin.ID, "username", admin.Username)
	return &Session{Admin: admin, Token: token, ExpiresIn: s.ttl}, nil
}

// AuthorizeRequest resolves a session token to an admin. The returned error
// is non-nil only for storage failures; every token problem is reported as
// Unauthenticated.
func (s *AuthService) AuthorizeRequest(ctx context.Context, token string) (AuthResult, error) {
	if token == "" {
		return AuthResult{Outcome: Unauthenticated, Reason: "missing token"}, nil
	}

	claims, ok := s.tokens.VerifyToken(token)
	if !ok {
		return AuthResult{Outcome: Unauthenticated, Reason: "invalid token"}, nil
	}

	admin, err := s.store.FindAdminByID(ctx, claims.AdminID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return AuthResult{Outcome: Unauthenticated, Reason: "admin not found"}, nil
		}
		return AuthResult{Outcome: Unauthenticated}, fmt.Errorf("look up admin: %w", err)
	}

	if !admin.IsActive {
		return AuthResult{Outcome: Forbidden, Reason: "admin account is inactive"}, nil
	}
	return AuthResult{Outcome: Authenticated, Admin: admin}, nil
}

// CreateAdmin creates a new admin on behalf of actor, who must be an active
// ADMIN.
func (s *AuthService) CreateAdmin(ctx context.Context, actor *model.Admin, in model.AdminCreate) (*model.Admin, error) {
	if !canManageAdmins(actor) {
		return nil, ErrForbidden
	}
	admin, err := s.insertAdmin(ctx, in)
	if err != nil {
		return nil, err
	}
	s.logger.Info("admin created", "admin_id", admin.ID, "username", admin.Username,
		"role", admin.Role, "created_by", actor.Username)
	return admin, nil
}

// Bootstrap creates an admin without an acting admin, for first-run seeding.
// If the username already exists the existing admin is returned with
// created=false, unless force is set, in which case it is deleted and
// recreated.
func (s *AuthService) Bootstrap(ctx context.Context, in model.AdminCreate, force bool) (admin *model.Admin, created bool, err error) {
	existing, err := s.store.FindAdminByUsername(ctx, in.Username)
	switch {
	case err == nil:
		if !force {
			return existing, false, nil
		}
		if err := s.store.DeleteAdmin(ctx, existing.ID); err != nil {
			return nil, false, fmt.Errorf("delete existing admin: %w", err)
		}
		s.logger.Info("deleted existing admin for recreation", "username", in.Username)
	case !errors.Is(err, store.ErrNotFound):
		return nil, false, fmt.Errorf("look up admin: %w", err)
	}

	admin, err = s.insertAdmin(ctx, in)
	if err != nil {
		return nil, false, err
	}
	s.logger.Info("admin seeded", "admin_id", admin.ID, "username", admin.Username, "role", admin.Role)
	return admin, true, nil
}

// SetAdminActive activates or deactivates the admin with id on behalf of
// actor, who must be an active ADMIN. Admins cannot deactivate themselves.
func (s *AuthService) SetAdminActive(ctx context.Context, actor *model.Admin, id int64, active bool) (*model.Admin, error) {
	if !canManageAdmins(actor) {
		return nil, ErrForbidden
	}
	if actor.ID == id && !active {
		return nil, fmt.Errorf("%w: admins cannot deactivate themselves", ErrValidation)
	}
	return s.setActive(ctx, id, active, actor.Username)
}

// SetAdminActiveByUsername is the operator path used by the CLI.
func (s *AuthService) SetAdminActiveByUsername(ctx context.Context, username string, active bool) (*model.Admin, error) {
	admin, err := s.store.FindAdminByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAdminNotFound
		}
		return nil, fmt.Errorf("look up admin: %w", err)
	}
	return s.setActive(ctx, admin.ID, active, "cli")
}

func (s *AuthService) setActive(ctx context.Context, id int64, active bool, by string) (*model.Admin, error) {
	if err := s.store.SetAdminActive(ctx, id, active); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAdminNotFound
		}
		return nil, fmt.Errorf("set admin active: %w", err)
	}
	admin, err := s.store.FindAdminByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload admin: %w", err)
	}
	s.logger.Info("admin active flag changed", "admin_id", id, "is_active", active, "changed_by", by)
	return admin, nil
}

// ListAdmins returns every admin account.
func (s *AuthService) ListAdmins(ctx context.Context) ([]model.Admin, error) {
	return s.store.ListAdmins(ctx)
}

// CredentialCheck is an operator diagnostic produced by VerifyCredentials.
type CredentialCheck struct {
	Admin         *model.Admin
	Found         bool
	PasswordValid bool
	CanLogin      bool
}

// VerifyCredentials explains why a login would or would not succeed. It is
// meant for operators on the command line and must not back an HTTP endpoint.
func (s *AuthService) VerifyCredentials(ctx context.Context, username, password string) (*CredentialCheck, error) {
	admin, err := s.store.FindAdminByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &CredentialCheck{}, nil
		}
		return nil, fmt.Errorf("look up admin: %w", err)
	}
	valid := security.VerifyPassword(password, admin.PasswordHash)
	return &CredentialCheck{
		Admin:         admin,
		Found:         true,
		PasswordValid: valid,
		CanLogin:      valid && admin.IsActive,
	}, nil
}

func (s *AuthService) insertAdmin(ctx context.Context, in model.AdminCreate) (*model.Admin, error) {
	if err := ValidateAdminCreate(&in); err != nil {
		return nil, err
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	admin := &model.Admin{
		Username:     in.Username,
		PasswordHash: hash,
		Role:         in.Role,
		IsActive:     true,
	}
	if err := s.store.InsertAdmin(ctx, admin); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create admin: %w", err)
	}
	return admin, nil
}

// ValidateAdminCreate checks field lengths and fills in the default role.
func ValidateAdminCreate(in *model.AdminCreate) error {
	if n := len([]rune(in.Username)); n < model.UsernameMinLen || n > model.UsernameMaxLen {
		return fmt.Errorf("%w: username must be %d to %d characters",
			ErrValidation, model.UsernameMinLen, model.UsernameMaxLen)
	}
	if n := len([]rune(in.Password)); n < model.PasswordMinLen || n > model.PasswordMaxLen {
		return fmt.Errorf("%w: password must be %d to %d characters",
			ErrValidation, model.PasswordMinLen, model.PasswordMaxLen)
	}
	if in.Role == "" {
		in.Role = model.RoleViewer
	}
	if !in.Role.Valid() {
		return fmt.Errorf("%w: role must be one of VIEWER, EDITOR, ADMIN", ErrValidation)
	}
	return nil
}

func canManageAdmins(actor *model.Admin) bool {
	return actor != nil && actor.IsActive && actor.Role == model.RoleAdmin
}
