package app

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/yemenflix/yflix/internal/auth"
	"github.com/yemenflix/yflix/internal/domain"
	"github.com/yemenflix/yflix/internal/ports"
	"github.com/yemenflix/yflix/internal/validate"
)

// Nombre d'échecs consécutifs avant une alerte failed_login.
const (
	failedLoginThreshold = 5
	// Compteurs des noms inconnus: bornés en nombre et oubliés après unknownFailureTTL.
	maxUnknownFailures = 4096
	unknownFailureTTL  = 30 * time.Minute
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// TokenIssuer est implémenté par auth.Issuer.
type TokenIssuer interface {
	Issue(u domain.User) (string, time.Time, error)
	Parse(token string) (*auth.Claims, error)
}

type AuthService struct {
	logger   zerolog.Logger
	users    collection[domain.User]
	tokens   TokenIssuer
	security *SecurityService
	settings *SettingsService
	now      func() time.Time

	mu sync.Mutex
	// échecs pour les noms inconnus (les comptes existants stockent FailedLogins).
	unknownFailures map[string]failureCount
	maxUnknown      int
}

type failureCount struct {
	n    int
	last time.Time
}

func NewAuthService(logger zerolog.Logger, store ports.DocumentStore, tokens TokenIssuer, security *SecurityService, settings *SettingsService) *AuthService {
	return &AuthService{
		logger:          logger,
		users:           newCollection(store, ports.CollectionUsers, func(u domain.User) string { return u.ID }),
		tokens:          tokens,
		security:        security,
		settings:        settings,
		now:             func() time.Time { return time.Now().UTC() },
		unknownFailures: map[string]failureCount{},
		maxUnknown:      maxUnknownFailures,
	}
}

// UserView est la forme publique d'un utilisateur (sans hash).
type UserView struct {
	ID          string      `json:"id"`
	Username    string      `json:"username"`
	Email       string      `json:"email,omitempty"`
	Role        domain.Role `json:"role"`
	CreatedAt   time.Time   `json:"createdAt"`
	LastLoginAt time.Time   `json:"lastLoginAt,omitzero"`
}

func ToUserView(u domain.User) UserView {
	return UserView{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt, LastLoginAt: u.LastLoginAt}
}

type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      UserView  `json:"user"`
}

type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *AuthService) findByUsername(ctx context.Context, username string) (domain.User, error) {
	found, err := s.users.filter(ctx, func(u domain.User) bool { return strings.EqualFold(u.Username, username) })
	if err != nil {
		return domain.User{}, err
	}
	if len(found) == 0 {
		return domain.User{}, ErrNotFound
	}
	return found[0], nil
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (Session, error) {
	if s.settings != nil {
		settings, err := s.settings.Get(ctx)
		if err != nil {
			return Session{}, err
		}
		if !settings.AllowRegistration {
			return Session{}, &CodedError{Code: "registration_closed", Message: "registration is closed", Err: ErrForbidden}
		}
	}
	u, err := s.CreateUser(ctx, in, domain.RoleUser)
	if err != nil {
		return Session{}, err
	}
	return s.issue(u)
}

// CreateUser est aussi utilisé par le seed pour le compte admin.
func (s *AuthService) CreateUser(ctx context.Context, in RegisterInput, role domain.Role) (domain.User, error) {
	username := strings.TrimSpace(in.Username)
	if username != "" && !usernamePattern.MatchString(username) {
		return domain.User{}, validate.Field("username", "may only contain letters, digits, '.', '_' and '-'")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, validate.Field("password", err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.findByUsername(ctx, username); err == nil {
		return domain.User{}, fmt.Errorf("%w: username already taken", ErrConflict)
	} else if !isNotFound(err) {
		return domain.User{}, err
	}

	u := domain.User{
		ID:           xid.New().String(),
		Username:     username,
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.now(),
	}
	if err := validate.Struct(u); err != nil {
		return domain.User{}, err
	}
	if err := s.users.put(ctx, u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// Login renvoie ErrUnauthorized sans distinguer nom inconnu et mauvais mot de passe.
// bcrypt tourne hors verrou; seuls les compteurs sont relus et écrits sous s.mu.
func (s *AuthService) Login(ctx context.Context, username, password, sourceIP string) (Session, error) {
	username = strings.TrimSpace(username)
	u, err := s.findByUsername(ctx, username)
	if err != nil && !isNotFound(err) {
		return Session{}, err
	}
	known := err == nil
	ok := known && auth.CheckPassword(u.PasswordHash, password)

	s.mu.Lock()
	if !ok {
		var failures int
		if known {
			failures = s.recordUserFailure(ctx, u.ID)
		} else {
			failures = s.recordUnknownFailure(strings.ToLower(username))
		}
		s.mu.Unlock()
		s.onFailedLogin(ctx, username, u.ID, sourceIP, failures)
		return Session{}, ErrUnauthorized
	}

	delete(s.unknownFailures, strings.ToLower(username))
	u, err = s.users.get(ctx, u.ID)
	if err == nil {
		u.FailedLogins = 0
		u.LastLoginAt = s.now()
		err = s.users.put(ctx, u)
	}
	s.mu.Unlock()
	if err != nil {
		return Session{}, err
	}
	return s.issue(u)
}

// recordUserFailure incrémente FailedLogins sur la version stockée. Appelé sous s.mu.
func (s *AuthService) recordUserFailure(ctx context.Context, id string) int {
	u, err := s.users.get(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", id).Msg("reload user for failed login failed")
		return 0
	}
	u.FailedLogins++
	if err := s.users.put(ctx, u); err != nil {
		s.logger.Warn().Err(err).Str("user_id", u.ID).Msg("persist failed login counter failed")
	}
	return u.FailedLogins
}

// recordUnknownFailure compte les échecs d'un nom inexistant. Appelé sous s.mu.
func (s *AuthService) recordUnknownFailure(key string) int {
	now := s.now()
	fc, seen := s.unknownFailures[key]
	if seen && now.Sub(fc.last) > unknownFailureTTL {
		fc = failureCount{}
	}
	if !seen && len(s.unknownFailures) >= s.maxUnknown {
		s.evictUnknown(now)
	}
	fc.n++
	fc.last = now
	s.unknownFailures[key] = fc
	return fc.n
}

// evictUnknown retire les entrées expirées, puis la plus ancienne si la table est encore pleine.
func (s *AuthService) evictUnknown(now time.Time) {
	var oldestKey string
	var oldest time.Time
	for k, fc := range s.unknownFailures {
		if now.Sub(fc.last) > unknownFailureTTL {
			delete(s.unknownFailures, k)
			continue
		}
		if oldestKey == "" || fc.last.Before(oldest) {
			oldestKey, oldest = k, fc.last
		}
	}
	if len(s.unknownFailures) >= s.maxUnknown && oldestKey != "" {
		delete(s.unknownFailures, oldestKey)
	}
}

// onFailedLogin lève une alerte à chaque palier de failedLoginThreshold échecs.
func (s *AuthService) onFailedLogin(ctx context.Context, username, userID, sourceIP string, failures int) {
	s.logger.Info().Str("username", username).Str("ip", sourceIP).Int("failures", failures).Msg("login failed")
	if s.security == nil || failures == 0 || failures%failedLoginThreshold != 0 {
		return
	}
	sev := domain.SeverityMedium
	if failures >= 2*failedLoginThreshold {
		sev = domain.SeverityHigh
	}
	_, err := s.security.Create(ctx, AlertInput{
		Type:     domain.AlertFailedLogin,
		Severity: sev,
		Message:  fmt.Sprintf("%d consecutive failed logins for %q", failures, username),
		SourceIP: sourceIP,
		UserID:   userID,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("raise failed login alert")
	}
}

func (s *AuthService) issue(u domain.User) (Session, error) {
	token, exp, err := s.tokens.Issue(u)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: exp, User: ToUserView(u)}, nil
}

// Authenticate vérifie le jeton et renvoie l'acteur.
// Le rôle est relu dans le store: une rétrogradation prend effet tout de suite.
func (s *AuthService) Authenticate(ctx context.Context, token string) (Actor, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return Actor{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	u, err := s.users.get(ctx, claims.Subject)
	if isNotFound(err) {
		return Actor{}, fmt.Errorf("%w: unknown user", ErrUnauthorized)
	}
	if err != nil {
		return Actor{}, err
	}
	return Actor{UserID: u.ID, Username: u.Username, Role: u.Role}, nil
}

func (s *AuthService) Me(ctx context.Context, actor Actor) (UserView, error) {
	if actor.Anonymous() {
		return UserView{}, ErrUnauthorized
	}
	u, err := s.users.get(ctx, actor.UserID)
	if err != nil {
		return UserView{}, err
	}
	return ToUserView(u), nil
}

func (s *AuthService) Count(ctx context.Context) (int, error) {
	all, err := s.users.list(ctx)
	return len(all), err
}
