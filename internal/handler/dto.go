package handler

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/service"
)

// ----- requests -----

type registerReq struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (r *registerReq) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 255), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 128)),
		validation.Field(&r.FirstName, validation.Length(0, 100)),
		validation.Field(&r.LastName, validation.Length(0, 100)),
	)
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *loginReq) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

type profileReq struct {
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

func (r *profileReq) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Email, validation.NilOrNotEmpty, validation.Length(3, 255), is.Email),
		validation.Field(&r.Password, validation.NilOrNotEmpty, validation.Length(1, 128)),
		validation.Field(&r.FirstName, validation.Length(0, 100)),
		validation.Field(&r.LastName, validation.Length(0, 100)),
	)
}

func (r *profileReq) update() service.ProfileUpdate {
	return service.ProfileUpdate{Email: r.Email, Password: r.Password, FirstName: r.FirstName, LastName: r.LastName}
}

type roleReq struct {
	Title string `json:"title"`
}

func (r *roleReq) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 100)),
	)
}

type pageQuery struct {
	Page     int    `query:"page"`
	PageSize int    `query:"page_size"`
	Email    string `query:"email"`
}

func (q *pageQuery) Validate() error {
	return validation.ValidateStruct(q,
		validation.Field(&q.Page, validation.Min(1), validation.Max(service.MaxPage)),
		validation.Field(&q.PageSize, validation.Min(1), validation.Max(service.MaxPageSize)),
	)
}

func (q *pageQuery) defaults() {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = 10
	}
}

// ----- responses -----

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type userPart struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      *string   `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toUser(u model.User) userPart {
	return userPart{
		ID:        u.ID.String(),
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role.Ptr(),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func toAuth(s service.Session) authResp {
	return authResp{
		User:    toUser(s.User),
		Access:  tokenPart{Token: s.Tokens.Access.Raw, Expires: s.Tokens.Access.ExpiresAt},
		Refresh: tokenPart{Token: s.Tokens.Refresh.Raw, Expires: s.Tokens.Refresh.ExpiresAt},
	}
}

type rolePart struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	SystemRole bool      `json:"system_role"`
	CreatedAt  time.Time `json:"created_at"`
}

func toRole(r model.Role) rolePart {
	return rolePart{ID: r.ID.String(), Title: r.Title, SystemRole: r.SystemRole, CreatedAt: r.CreatedAt}
}

type historyPart struct {
	ID        string    `json:"id"`
	LoggedAt  time.Time `json:"logged_at"`
	IPAddress string    `json:"ip_address"`
	UserAgent *string   `json:"user_agent"`
}

type pageMeta struct {
	CurrentPage int `json:"current_page"`
	PageSize    int `json:"page_size"`
	TotalCount  int `json:"total_count"`
	TotalPages  int `json:"total_pages"`
}

type pageResp[T any] struct {
	Items []T      `json:"items"`
	Meta  pageMeta `json:"meta"`
}

func toPage[S, T any](p model.Page[S], conv func(S) T) pageResp[T] {
	items := make([]T, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, conv(it))
	}
	return pageResp[T]{
		Items: items,
		Meta: pageMeta{
			CurrentPage: p.Page,
			PageSize:    p.PageSize,
			TotalCount:  p.Total,
			TotalPages:  p.TotalPages(),
		},
	}
}
