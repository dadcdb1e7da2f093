package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/queue"
	"github.com/iliyamo/auth-service/internal/repository"
	"github.com/iliyamo/auth-service/internal/utils"
)

// HistoryStore appends to and pages through login history.
type HistoryStore interface {
	Add(ctx context.Context, h *model.LoginHistory) error
	ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int) (model.Page[model.LoginHistory], error)
}

// ClientInfo describes the caller of a login.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// Session is what a successful login returns.
type Session struct {
	Tokens TokenPair
	User   model.User
}

// AuthService ties credentials, tokens and login history together.
type AuthService struct {
	users    UserStore
	accounts *UserService
	history  HistoryStore
	tokens   *TokenService
	hasher   PasswordHasher
	events   EventPublisher
	log      *slog.Logger
	now      func() time.Time

	// dummyHash is compared against when the email is unknown so both
	// failure paths cost one bcrypt comparison.
	dummyHash string
}

func NewAuthService(accounts *UserService, history HistoryStore, tokens *TokenService, log *slog.Logger) (*AuthService, error) {
	if log == nil {
		log = slog.Default()
	}
	secret, err := utils.RandomHex(16)
	if err != nil {
		return nil, err
	}
	dummy, err := accounts.hasher.Hash(secret)
	if err != nil {
		return nil, err
	}
	return &AuthService{
		users:     accounts.users,
		accounts:  accounts,
		history:   history,
		tokens:    tokens,
		hasher:    accounts.hasher,
		events:    accounts.events,
		log:       log,
		now:       time.Now,
		dummyHash: dummy,
	}, nil
}

// Register creates an account.
func (a *AuthService) Register(ctx context.Context, in NewUser) (model.User, error) {
	return a.accounts.Create(ctx, in)
}

// Login validates credentials and opens a session. Unknown email and
// wrong password fail identically.
func (a *AuthService) Login(ctx context.Context, email, password string, client ClientInfo) (Session, error) {
	u, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return Session{}, internal("lookup user", err)
		}
		a.hasher.Verify(a.dummyHash, password)
		return Session{}, unauthorized(MsgInvalidCredentials, nil)
	}
	if !a.hasher.Verify(u.PasswordHash, password) {
		return Session{}, unauthorized(MsgInvalidCredentials, nil)
	}
	return a.startSession(ctx, u, client, uuid.Nil, "")
}

// startSession issues a token pair for u and records the login. A failed
// history write is logged and does not undo the login.
func (a *AuthService) startSession(ctx context.Context, u model.User, client ClientInfo, supervisor uuid.UUID, provider string) (Session, error) {
	pair, err := a.tokens.IssuePair(u.ID, u.Role)
	if err != nil {
		return Session{}, err
	}

	at := a.now().UTC()
	h := model.LoginHistory{
		ID:        uuid.New(),
		UserID:    u.ID,
		LoggedAt:  at,
		IPAddress: client.IP,
	}
	if client.UserAgent != "" {
		ua := client.UserAgent
		h.UserAgent = &ua
	}
	if err := a.history.Add(ctx, &h); err != nil {
		a.log.Error("login history write failed",
			slog.String("user_id", u.ID.String()),
			slog.String("ip", client.IP),
			slog.Any("err", err))
	}

	ev := queue.UserLoggedInEvent{
		UserID:     u.ID.String(),
		Email:      u.Email,
		IPAddress:  client.IP,
		UserAgent:  client.UserAgent,
		Provider:   provider,
		LoggedInAt: timestamp(at),
	}
	if supervisor != uuid.Nil {
		ev.SupervisorID = supervisor.String()
	}
	publishEvent(ctx, a.events, a.log, queue.UserLoggedIn, ev)

	return Session{Tokens: pair, User: u}, nil
}

// Logout revokes the access token and its paired refresh token.
func (a *AuthService) Logout(ctx context.Context, rawAccess string) error {
	c, err := a.tokens.Verify(ctx, rawAccess, utils.AccessTokenType)
	if err != nil {
		return err
	}
	if err := a.tokens.RevokeSession(ctx, c); err != nil {
		return err
	}
	a.log.Info("user logged out", slog.String("user_id", c.Subject.String()))
	return nil
}

// Refresh mints a new access token carrying the user's current role.
func (a *AuthService) Refresh(ctx context.Context, rawRefresh string) (Token, Claims, error) {
	return a.tokens.Refresh(ctx, rawRefresh, a.currentRole)
}

func (a *AuthService) currentRole(ctx context.Context, id uuid.UUID) (model.RoleName, error) {
	u, err := a.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.RoleNone, invalidToken(err)
		}
		return model.RoleNone, internal("lookup user", err)
	}
	return u.Role, nil
}

// SupervisedLogin lets a superuser open a session as target. The new
// tokens carry the target's own role.
func (a *AuthService) SupervisedLogin(ctx context.Context, caller Claims, target uuid.UUID, client ClientInfo) (Session, error) {
	if !caller.HasRole(model.RoleSuperuser) {
		a.log.Warn("supervised login denied",
			slog.String("caller_id", caller.Subject.String()),
			slog.String("target_id", target.String()))
		return Session{}, forbidden(MsgSuperuserRequired)
	}
	u, err := a.users.GetByID(ctx, target)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Session{}, notFound(MsgUserNotFound, err)
		}
		return Session{}, internal("lookup user", err)
	}
	a.log.Info("supervised login",
		slog.String("supervisor_id", caller.Subject.String()),
		slog.String("target_id", u.ID.String()),
		slog.String("ip", client.IP))
	return a.startSession(ctx, u, client, caller.Subject, "")
}

// Me returns the profile of the authenticated user.
func (a *AuthService) Me(ctx context.Context, id uuid.UUID) (model.User, error) {
	return a.accounts.Get(ctx, id)
}

// History returns one page of the user's logins, newest first.
func (a *AuthService) History(ctx context.Context, id uuid.UUID, page, pageSize int) (model.Page[model.LoginHistory], error) {
	if err := checkPage(page, pageSize); err != nil {
		return model.Page[model.LoginHistory]{}, err
	}
	p, err := a.history.ListByUser(ctx, id, page, pageSize)
	if err != nil {
		return model.Page[model.LoginHistory]{}, internal("list history", err)
	}
	return p, nil
}
