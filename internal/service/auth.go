package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/oops"

	"github.com/iliyamo/contenthub/internal/metrics"
	"github.com/iliyamo/contenthub/internal/model"
	"github.com/iliyamo/contenthub/internal/repository"
	"github.com/iliyamo/contenthub/internal/utils"
)

// msgInvalidCredentials never says which half of the credentials was wrong.
const msgInvalidCredentials = "invalid credentials"

// AuthService orchestrates registration, login and the refresh-token
// lifecycle.  Every operation runs in one transaction.
type AuthService struct {
	store      *repository.Store
	tokens     *utils.TokenIssuer
	bcryptCost int
	logger     *slog.Logger
}

func NewAuthService(store *repository.Store, tokens *utils.TokenIssuer, bcryptCost int, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{store: store, tokens: tokens, bcryptCost: bcryptCost, logger: logger}
}

// TokenPair is what a successful login hands to the client.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// AuthResult bundles the user profile with a fresh token pair.
type AuthResult struct {
	User   model.User
	Tokens TokenPair
}

// RegisterInput is the payload of Register.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

func (in *RegisterInput) normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = repository.NormalizeEmail(in.Email)
}

func (in RegisterInput) validate() error {
	fe := FieldErrors{}
	validateUsername(fe, in.Username)
	validateEmail(fe, in.Email)
	fe.Check(utf8.RuneCountInString(in.Password) >= 6, "password", "must be at least 6 characters")
	fe.Check(len(in.Password) <= 72, "password", "must be at most 72 bytes")
	return fe.Err()
}

func validateUsername(fe FieldErrors, username string) {
	n := utf8.RuneCountInString(username)
	fe.Check(n >= 3 && n <= 50, "username", "must be between 3 and 50 characters")
	fe.Check(!strings.ContainsAny(username, " @\t\n"), "username", "must not contain spaces or @")
}

func validateEmail(fe FieldErrors, email string) {
	if email == "" {
		fe.Add("email", "is required")
		return
	}
	addr, err := mail.ParseAddress(email)
	fe.Check(err == nil && addr.Address == email, "email", "must be a valid email address")
	fe.Check(len(email) <= 255, "email", "must be at most 255 characters")
}

// Register creates a user with the default role and logs them in.  A
// failed registration leaves the store untouched.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		metrics.RecordAuth("register", false)
		return AuthResult{}, err
	}
	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return AuthResult{}, oops.Wrapf(err, "hash password")
	}

	var res AuthResult
	err = s.store.Tx(ctx, func(tx *repository.Store) error {
		u, err := createUser(ctx, tx, in, hash, model.DefaultRole)
		if err != nil {
			return err
		}
		res, err = s.issue(ctx, tx, u)
		return err
	})
	metrics.RecordAuth("register", err == nil)
	if err != nil {
		s.logger.Info("auth: register rejected", "username", in.Username, "code", ErrorCode(err))
		return AuthResult{}, err
	}
	s.logger.Info("auth: registered", "user_id", res.User.ID)
	return res, nil
}

// CreateAdmin registers an account with the Admin role and no tokens.
// It backs the create-admin command; the HTTP API never grants Admin.
func (s *AuthService) CreateAdmin(ctx context.Context, in RegisterInput) (model.User, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return model.User{}, err
	}
	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return model.User{}, oops.Wrapf(err, "hash password")
	}
	var u model.User
	err = s.store.Tx(ctx, func(tx *repository.Store) error {
		u, err = createUser(ctx, tx, in, hash, model.RoleAdmin)
		return err
	})
	if err != nil {
		return model.User{}, err
	}
	s.logger.Info("auth: admin created", "user_id", u.ID)
	return u, nil
}

// createUser inserts the account after the uniqueness checks.  The role
// is resolved through the roles table so a missing seed is NOT_FOUND.
func createUser(ctx context.Context, tx *repository.Store, in RegisterInput, hash string, want model.Role) (model.User, error) {
	if taken, err := tx.Users.EmailTaken(ctx, in.Email, ""); err != nil {
		return model.User{}, err
	} else if taken {
		return model.User{}, errConflict("email already exists")
	}
	if taken, err := tx.Users.UsernameTaken(ctx, in.Username, ""); err != nil {
		return model.User{}, err
	} else if taken {
		return model.User{}, errConflict("username already exists")
	}
	role, err := tx.Roles.Get(ctx, want)
	if err != nil {
		return model.User{}, notFoundOr(err, "role", string(want))
	}

	u := model.User{Username: in.Username, Email: in.Email, PasswordHash: hash, Role: role}
	if err := tx.Users.Create(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// lost a race with a concurrent registration
			return model.User{}, errConflict("username or email already exists")
		}
		return model.User{}, err
	}
	return u, nil
}

// Login verifies credentials and issues a new token pair.
func (s *AuthService) Login(ctx context.Context, usernameOrEmail, password string) (AuthResult, error) {
	var res AuthResult
	err := s.store.Tx(ctx, func(tx *repository.Store) error {
		u, err := tx.Users.GetByLogin(ctx, usernameOrEmail)
		if errors.Is(err, repository.ErrNotFound) {
			return errUnauthorized(msgInvalidCredentials)
		}
		if err != nil {
			return err
		}
		if !utils.VerifyPassword(u.PasswordHash, password) {
			return errUnauthorized(msgInvalidCredentials)
		}
		res, err = s.issue(ctx, tx, u)
		return err
	})
	metrics.RecordAuth("login", err == nil)
	if err != nil {
		s.logger.Info("auth: login rejected", "code", ErrorCode(err))
		return AuthResult{}, err
	}
	s.logger.Info("auth: login", "user_id", res.User.ID)
	return res, nil
}

// Refresh exchanges an active refresh token for a new pair.  The old
// token is consumed; of two concurrent refreshes at most one succeeds.
func (s *AuthService) Refresh(ctx context.Context, raw string) (AuthResult, error) {
	if strings.TrimSpace(raw) == "" {
		metrics.RecordAuth("refresh", false)
		return AuthResult{}, errUnauthorized("invalid refresh token")
	}
	hash := utils.HashRefreshToken(raw)

	var res AuthResult
	err := s.store.Tx(ctx, func(tx *repository.Store) error {
		row, err := tx.Tokens.FindByHash(ctx, hash)
		if errors.Is(err, repository.ErrNotFound) {
			return errUnauthorized("invalid refresh token")
		}
		if err != nil {
			return err
		}
		if !row.Active(s.tokens.Now()) {
			return errUnauthorized("invalid refresh token")
		}
		claimed, err := tx.Tokens.ClaimUnused(ctx, row.ID)
		if err != nil {
			return err
		}
		if !claimed {
			return errUnauthorized("invalid refresh token")
		}
		u, err := tx.Users.GetByID(ctx, row.UserID)
		if errors.Is(err, repository.ErrNotFound) {
			return errUnauthorized("invalid refresh token")
		}
		if err != nil {
			return err
		}
		res, err = s.issue(ctx, tx, u)
		return err
	})
	metrics.RecordAuth("refresh", err == nil)
	if err != nil {
		s.logger.Info("auth: refresh rejected", "code", ErrorCode(err))
		return AuthResult{}, err
	}
	return res, nil
}

// Logout revokes the caller's refresh token matching raw.  Unknown,
// foreign or already revoked tokens are a silent no-op.
func (s *AuthService) Logout(ctx context.Context, userID, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	changed, err := s.store.Tokens.RevokeForUser(ctx, userID, utils.HashRefreshToken(raw))
	metrics.RecordAuth("logout", err == nil)
	if err != nil {
		return oops.With("user_id", userID).Wrapf(err, "revoke refresh token")
	}
	s.logger.Info("auth: logout", "user_id", userID, "revoked", changed)
	return nil
}

// LogoutAll revokes every active refresh token of the user.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) (int64, error) {
	n, err := s.store.Tokens.RevokeAllForUser(ctx, userID)
	metrics.RecordAuth("logout_all", err == nil)
	if err != nil {
		return 0, oops.With("user_id", userID).Wrapf(err, "revoke refresh tokens")
	}
	s.logger.Info("auth: logout all", "user_id", userID, "revoked", n)
	return n, nil
}

// CurrentUser returns the profile of the authenticated user.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (model.User, error) {
	u, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		return model.User{}, notFoundOr(err, "user", userID)
	}
	return u, nil
}

// issue mints an access token and persists a new refresh token row.
func (s *AuthService) issue(ctx context.Context, tx *repository.Store, u model.User) (AuthResult, error) {
	at, err := s.tokens.IssueAccessToken(utils.Subject{ID: u.ID, Username: u.Username, Email: u.Email, Role: string(u.Role)})
	if err != nil {
		return AuthResult{}, oops.Wrapf(err, "sign access token")
	}
	rt, err := s.tokens.IssueRefreshToken()
	if err != nil {
		return AuthResult{}, oops.Wrapf(err, "generate refresh token")
	}
	if _, err := tx.Tokens.Store(ctx, u.ID, utils.HashRefreshToken(rt.Raw), rt.Exp); err != nil {
		return AuthResult{}, oops.Wrapf(err, "store refresh token")
	}
	return AuthResult{
		User: u,
		Tokens: TokenPair{
			AccessToken:      at.Token,
			AccessExpiresAt:  at.Exp,
			RefreshToken:     rt.Raw,
			RefreshExpiresAt: rt.Exp,
		},
	}, nil
}
