// Package servicetest provides in-memory stand-ins for the stores the
// services depend on. They follow the same error contract as the MySQL
// and Redis repositories.
package servicetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/repository"
)

// Store is an in-memory credential store. Use the Users, Roles, History
// and OAuth views to get values satisfying the service interfaces.
type Store struct {
	mu        sync.Mutex
	users     map[uuid.UUID]model.User
	roles     map[uuid.UUID]model.Role
	history   []model.LoginHistory
	providers map[string]model.OAuthProvider
	accounts  []model.OAuthAccount

	// HistoryErr, when set, is returned by History().Add.
	HistoryErr error
}

// NewStore returns a store seeded with the built-in roles.
func NewStore() *Store {
	s := &Store{
		users:     map[uuid.UUID]model.User{},
		roles:     map[uuid.UUID]model.Role{},
		providers: map[string]model.OAuthProvider{},
	}
	now := time.Now().UTC()
	for _, r := range []model.Role{
		{ID: uuid.New(), Title: "superuser", SystemRole: true, CreatedAt: now},
		{ID: uuid.New(), Title: "admin", SystemRole: true, CreatedAt: now},
		{ID: uuid.New(), Title: "subscriber", CreatedAt: now},
	} {
		s.roles[r.ID] = r
	}
	return s
}

func (s *Store) Users() *Users     { return &Users{s} }
func (s *Store) Roles() *Roles     { return &Roles{s} }
func (s *Store) History() *History { return &History{s} }
func (s *Store) OAuth() *OAuth     { return &OAuth{s} }

// RoleByTitle is a test helper.
func (s *Store) RoleByTitle(title string) (model.Role, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.roles {
		if r.Title == title {
			return r, true
		}
	}
	return model.Role{}, false
}

// Accounts returns a copy of the OAuth links.
func (s *Store) Accounts() []model.OAuthAccount {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.OAuthAccount(nil), s.accounts...)
}

// withRole resolves the role title the way the SQL join does.
func (s *Store) withRole(u model.User) model.User {
	u.Role = model.RoleNone
	if u.RoleID.Valid {
		if r, ok := s.roles[u.RoleID.UUID]; ok {
			u.Role = r.Name()
		}
	}
	return u
}

func (s *Store) emailTaken(email string, except uuid.UUID) bool {
	for _, u := range s.users {
		if u.Email == email && u.ID != except {
			return true
		}
	}
	return false
}

func (s *Store) insertUser(u *model.User) error {
	if s.emailTaken(u.Email, uuid.Nil) {
		return repository.ErrDuplicate
	}
	if u.RoleID.Valid {
		if _, ok := s.roles[u.RoleID.UUID]; !ok {
			return repository.ErrForeignKey
		}
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = *u
	return nil
}

// Users is the UserStore view.
type Users struct{ s *Store }

func (v *Users) Create(_ context.Context, u *model.User) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return v.s.insertUser(u)
}

func (v *Users) GetByEmail(_ context.Context, email string) (model.User, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	email = model.NormalizeEmail(email)
	for _, u := range v.s.users {
		if u.Email == email {
			return v.s.withRole(u), nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (v *Users) GetByID(_ context.Context, id uuid.UUID) (model.User, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	u, ok := v.s.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return v.s.withRole(u), nil
}

func (v *Users) filtered(email string) []model.User {
	email = model.NormalizeEmail(email)
	var out []model.User
	for _, u := range v.s.users {
		if email == "" || u.Email == email {
			out = append(out, v.s.withRole(u))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (v *Users) Count(_ context.Context, email string) (int, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return len(v.filtered(email)), nil
}

func (v *Users) List(_ context.Context, email string, limit, offset int) ([]model.User, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	all := v.filtered(email)
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (v *Users) Update(_ context.Context, u *model.User) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	cur, ok := v.s.users[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if v.s.emailTaken(u.Email, u.ID) {
		return repository.ErrDuplicate
	}
	cur.Email, cur.PasswordHash = u.Email, u.PasswordHash
	cur.FirstName, cur.LastName = u.FirstName, u.LastName
	cur.UpdatedAt = time.Now().UTC()
	u.UpdatedAt = cur.UpdatedAt
	v.s.users[u.ID] = cur
	return nil
}

func (v *Users) SetRole(_ context.Context, userID uuid.UUID, roleID uuid.NullUUID) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if roleID.Valid {
		if _, ok := v.s.roles[roleID.UUID]; !ok {
			return repository.ErrForeignKey
		}
	}
	u, ok := v.s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.RoleID = roleID
	u.UpdatedAt = time.Now().UTC()
	v.s.users[userID] = u
	return nil
}

func (v *Users) Delete(_ context.Context, id uuid.UUID) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(v.s.users, id)
	kept := v.s.history[:0]
	for _, h := range v.s.history {
		if h.UserID != id {
			kept = append(kept, h)
		}
	}
	v.s.history = kept
	return nil
}

// Roles is the RoleStore view. Delete refuses system roles and clears
// the reference of users holding the deleted role.
type Roles struct{ s *Store }

func (v *Roles) titleTaken(title string, except uuid.UUID) bool {
	for _, r := range v.s.roles {
		if r.Title == title && r.ID != except {
			return true
		}
	}
	return false
}

func (v *Roles) Create(_ context.Context, r *model.Role) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if v.titleTaken(r.Title, uuid.Nil) {
		return repository.ErrDuplicate
	}
	r.CreatedAt = time.Now().UTC()
	v.s.roles[r.ID] = *r
	return nil
}

func (v *Roles) Delete(_ context.Context, id uuid.UUID) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	r, ok := v.s.roles[id]
	if !ok {
		return repository.ErrNotFound
	}
	if r.SystemRole {
		return repository.ErrSystemRole
	}
	delete(v.s.roles, id)
	for uid, u := range v.s.users {
		if u.RoleID.Valid && u.RoleID.UUID == id {
			u.RoleID = uuid.NullUUID{}
			v.s.users[uid] = u
		}
	}
	return nil
}

func (v *Roles) Rename(_ context.Context, id uuid.UUID, title string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	r, ok := v.s.roles[id]
	if !ok {
		return repository.ErrNotFound
	}
	if v.titleTaken(title, id) {
		return repository.ErrDuplicate
	}
	r.Title = title
	v.s.roles[id] = r
	return nil
}

func (v *Roles) GetByID(_ context.Context, id uuid.UUID) (model.Role, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	r, ok := v.s.roles[id]
	if !ok {
		return model.Role{}, repository.ErrNotFound
	}
	return r, nil
}

func (v *Roles) GetByTitle(_ context.Context, title string) (model.Role, error) {
	r, ok := v.s.RoleByTitle(title)
	if !ok {
		return model.Role{}, repository.ErrNotFound
	}
	return r, nil
}

func (v *Roles) List(context.Context) ([]model.Role, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	out := make([]model.Role, 0, len(v.s.roles))
	for _, r := range v.s.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

// History is the HistoryStore view.
type History struct{ s *Store }

func (v *History) Add(_ context.Context, h *model.LoginHistory) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if v.s.HistoryErr != nil {
		return v.s.HistoryErr
	}
	if _, ok := v.s.users[h.UserID]; !ok {
		return repository.ErrForeignKey
	}
	v.s.history = append(v.s.history, *h)
	return nil
}

func (v *History) ListByUser(_ context.Context, userID uuid.UUID, page, pageSize int) (model.Page[model.LoginHistory], error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	out := model.Page[model.LoginHistory]{Page: page, PageSize: pageSize, Items: []model.LoginHistory{}}
	var mine []model.LoginHistory
	for _, h := range v.s.history {
		if h.UserID == userID {
			mine = append(mine, h)
		}
	}
	// Appended in time order; newest first.
	for i, j := 0, len(mine)-1; i < j; i, j = i+1, j-1 {
		mine[i], mine[j] = mine[j], mine[i]
	}
	out.Total = len(mine)
	if off := out.Offset(); off < len(mine) {
		end := off + pageSize
		if end > len(mine) {
			end = len(mine)
		}
		out.Items = append(out.Items, mine[off:end]...)
	}
	return out, nil
}

// OAuth is the OAuthStore view.
type OAuth struct{ s *Store }

func (v *OAuth) EnsureProvider(_ context.Context, name string) (model.OAuthProvider, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	p, ok := v.s.providers[name]
	if !ok {
		p = model.OAuthProvider{ID: uuid.New(), Name: name}
		v.s.providers[name] = p
	}
	return p, nil
}

func (v *OAuth) UserIDByAccount(_ context.Context, providerID uuid.UUID, providerUserID string) (uuid.UUID, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, a := range v.s.accounts {
		if a.ProviderID == providerID && a.ProviderUserID == providerUserID {
			return a.UserID, nil
		}
	}
	return uuid.Nil, repository.ErrNotFound
}

func (v *OAuth) upsert(a *model.OAuthAccount) error {
	if _, ok := v.s.users[a.UserID]; !ok {
		return repository.ErrForeignKey
	}
	a.UpdatedAt = time.Now().UTC()
	for i, cur := range v.s.accounts {
		if cur.UserID == a.UserID && cur.ProviderID == a.ProviderID {
			a.ID = cur.ID
			v.s.accounts[i] = *a
			return nil
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	v.s.accounts = append(v.s.accounts, *a)
	return nil
}

func (v *OAuth) UpsertAccount(_ context.Context, a *model.OAuthAccount) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return v.upsert(a)
}

func (v *OAuth) CreateLinkedUser(_ context.Context, u *model.User, a *model.OAuthAccount) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if err := v.s.insertUser(u); err != nil {
		return err
	}
	a.UserID = u.ID
	if err := v.upsert(a); err != nil {
		delete(v.s.users, u.ID)
		return err
	}
	return nil
}
