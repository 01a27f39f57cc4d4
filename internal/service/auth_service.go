package service

import (
    "context"
    "errors"
    "fmt"
    "strings"

    "github.com/sirupsen/logrus"

    "github.com/iliyamo/room-reservation/internal/model"
    "github.com/iliyamo/room-reservation/internal/policy"
    "github.com/iliyamo/room-reservation/internal/repository"
    "github.com/iliyamo/room-reservation/internal/utils"
)

// AuthConfig holds the token and hashing parameters of AuthService.
type AuthConfig struct {
    JWTSecret      string
    AccessTTLMin   int
    RefreshTTLDays int
    BcryptCost     int
}

// Session is what a successful register, login or refresh hands back.
type Session struct {
    User    model.User
    Access  utils.AccessToken
    Refresh utils.RefreshToken
}

// AuthService is the identity provider: it registers principals, checks
// passwords and issues access/refresh token pairs.
type AuthService struct {
    users  repository.UserStore
    tokens repository.TokenStore
    cfg    AuthConfig
    log    *logrus.Entry
}

func NewAuthService(users repository.UserStore, tokens repository.TokenStore, cfg AuthConfig, log *logrus.Entry) *AuthService {
    return &AuthService{users: users, tokens: tokens, cfg: cfg, log: log.WithField("component", "auth")}
}

// Register creates a GUEST or OWNER account.  An empty role means GUEST;
// asking for ADMIN is forbidden.
func (s *AuthService) Register(ctx context.Context, email, password, role string) (Session, error) {
    r := model.RoleGuest
    if strings.TrimSpace(role) != "" {
        var ok bool
        if r, ok = model.ParseRole(role); !ok {
            return Session{}, validation("unknown role %q", role)
        }
    }
    if !policy.Allowed(policy.Request{Op: policy.Register, TargetRole: r}) {
        return Session{}, forbidden("role %s cannot be self-registered", r)
    }
    u, err := s.createUser(ctx, email, password, r)
    if err != nil {
        return Session{}, err
    }
    s.log.WithFields(logrus.Fields{"user_id": u.ID, "role": u.Role}).Info("user registered")
    return s.issue(ctx, u)
}

// Login checks the password and issues a new session.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
    u, err := s.users.GetUserByEmail(ctx, email)
    if errors.Is(err, repository.ErrNotFound) {
        return Session{}, ErrUnauthenticated
    }
    if err != nil {
        return Session{}, fmt.Errorf("load user: %w", err)
    }
    if !utils.VerifyPassword(u.PasswordHash, password) {
        return Session{}, ErrUnauthenticated
    }
    return s.issue(ctx, u)
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued.
func (s *AuthService) Refresh(ctx context.Context, raw string) (Session, error) {
    hash := utils.HashRefreshRaw(strings.TrimSpace(raw))
    userID, err := s.tokens.ValidateRefresh(ctx, hash)
    if errors.Is(err, repository.ErrNotFound) {
        return Session{}, ErrUnauthenticated
    }
    if err != nil {
        return Session{}, fmt.Errorf("validate refresh: %w", err)
    }
    if err := s.tokens.RevokeByHash(ctx, hash); err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return Session{}, ErrUnauthenticated
        }
        return Session{}, fmt.Errorf("revoke refresh: %w", err)
    }
    u, err := s.users.GetUserByID(ctx, userID)
    if errors.Is(err, repository.ErrNotFound) {
        return Session{}, ErrUnauthenticated
    }
    if err != nil {
        return Session{}, fmt.Errorf("load user: %w", err)
    }
    return s.issue(ctx, u)
}

// Logout revokes one refresh token when raw is set, otherwise every
// refresh token of p.  With neither there is nothing to identify.
func (s *AuthService) Logout(ctx context.Context, p *model.Principal, raw string) error {
    raw = strings.TrimSpace(raw)
    if raw != "" {
        hash := utils.HashRefreshRaw(raw)
        if _, err := s.tokens.ValidateRefresh(ctx, hash); err != nil {
            if errors.Is(err, repository.ErrNotFound) {
                return ErrUnauthenticated
            }
            return fmt.Errorf("validate refresh: %w", err)
        }
        if err := s.tokens.RevokeByHash(ctx, hash); err != nil && !errors.Is(err, repository.ErrNotFound) {
            return err
        }
        return nil
    }
    if p == nil {
        return validation("provide Authorization header or refresh_token")
    }
    return s.tokens.RevokeAllForUser(ctx, p.ID)
}

// Me returns the stored user behind p.
func (s *AuthService) Me(ctx context.Context, p model.Principal) (model.User, error) {
    u, err := s.users.GetUserByID(ctx, p.ID)
    if errors.Is(err, repository.ErrNotFound) {
        return model.User{}, notFound("user %d not found", p.ID)
    }
    return u, err
}

// EnsureAdmin creates the ADMIN account with the given credentials unless
// the email is already registered.  This is the only way an ADMIN comes
// to exist.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (model.User, error) {
    u, err := s.users.GetUserByEmail(ctx, email)
    if err == nil {
        return u, nil
    }
    if !errors.Is(err, repository.ErrNotFound) {
        return model.User{}, fmt.Errorf("load admin: %w", err)
    }
    u, err = s.createUser(ctx, email, password, model.RoleAdmin)
    if err != nil {
        return model.User{}, err
    }
    s.log.WithField("user_id", u.ID).Info("bootstrap admin created")
    return u, nil
}

func (s *AuthService) createUser(ctx context.Context, email, password string, role model.Role) (model.User, error) {
    email = strings.ToLower(strings.TrimSpace(email))
    if email == "" || password == "" {
        return model.User{}, validation("email/password required")
    }
    hash, err := utils.HashPassword(password, s.cfg.BcryptCost)
    if errors.Is(err, utils.ErrPasswordTooLong) {
        return model.User{}, validation("%s", err)
    }
    if err != nil {
        return model.User{}, fmt.Errorf("hash password: %w", err)
    }
    u, err := s.users.CreateUser(ctx, email, hash, role)
    if errors.Is(err, repository.ErrEmailExists) {
        return model.User{}, conflict("email already exists")
    }
    if err != nil {
        return model.User{}, fmt.Errorf("create user: %w", err)
    }
    return u, nil
}

func (s *AuthService) issue(ctx context.Context, u model.User) (Session, error) {
    access, err := utils.NewAccessToken(s.cfg.JWTSecret, u.Principal(), s.cfg.AccessTTLMin)
    if err != nil {
        return Session{}, fmt.Errorf("issue access: %w", err)
    }
    refresh, err := utils.NewRefreshToken(s.cfg.RefreshTTLDays)
    if err != nil {
        return Session{}, fmt.Errorf("issue refresh: %w", err)
    }
    if err := s.tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
        return Session{}, fmt.Errorf("save refresh: %w", err)
    }
    return Session{User: u, Access: access, Refresh: refresh}, nil
}
