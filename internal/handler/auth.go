package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pharmapin/pharmapin/internal/apperr"
	"github.com/pharmapin/pharmapin/internal/config"
	"github.com/pharmapin/pharmapin/internal/middleware"
	"github.com/pharmapin/pharmapin/internal/model"
	"github.com/pharmapin/pharmapin/internal/service"
	"github.com/pharmapin/pharmapin/internal/utils"
)

// AuthHandler issues and revokes tokens. Register and login are the only
// routes that see plaintext passwords.
type AuthHandler struct {
	Cfg    config.Config
	Users  service.UserStore
	Tokens service.TokenStore
}

func NewAuthHandler(cfg config.Config, u service.UserStore, t service.TokenStore) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

type registerReq struct {
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	Password  string     `json:"password"`
	Role      model.Role `json:"role"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type authResp struct {
	User    *model.User `json:"user"`
	Access  tokenPart   `json:"access"`
	Refresh tokenPart   `json:"refresh"`
}

func (r *registerReq) normalize() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Username = strings.TrimSpace(r.Username)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Phone = strings.TrimSpace(r.Phone)
	if r.Role == "" {
		r.Role = model.RolePatient
	}

	fields := map[string]string{}
	if !strings.Contains(r.Email, "@") || len(r.Email) > 255 {
		fields["email"] = "a valid email is required"
	}
	if n := len(r.Username); n < 3 || n > 50 {
		fields["username"] = "username must be 3-50 characters"
	}
	if len(r.Password) < 6 {
		fields["password"] = "password must be at least 6 characters"
	}
	switch r.Role {
	case model.RolePatient, model.RolePharmacist:
	case model.RoleAdmin:
		fields["role"] = "admin accounts cannot be self-registered"
	default:
		fields["role"] = "role must be patient or pharmacist"
	}
	return apperr.Validation(fields)
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := req.normalize(); err != nil {
		return err
	}
	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u := &model.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Username:     req.Username,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: hash,
		Role:         req.Role,
		IsActive:     true,
	}
	if err := h.Users.Create(ctx, u); err != nil {
		return apperr.Unavailable(err)
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, resp)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return apperr.Validation(map[string]string{"credentials": "email and password are required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if apperr.CodeOf(err) == apperr.CodeNotFound {
			return apperr.New(apperr.CodeUnauthorized, "invalid credentials")
		}
		return apperr.Unavailable(err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return apperr.New(apperr.CodeUnauthorized, "invalid credentials")
	}
	if !u.IsActive {
		return apperr.New(apperr.CodeForbidden, "account is deactivated")
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh rotates: the presented token is revoked and a new pair issued.
func (h *AuthHandler) Refresh(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, hash, err := h.userForRefresh(ctx, c)
	if err != nil {
		return err
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return apperr.Unavailable(err)
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// RefreshAccess returns a new access token and leaves the refresh token
// valid.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, _, err := h.userForRefresh(ctx, c)
	if err != nil {
		return err
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"access": tokenPart{Token: access.Token, Expires: access.Exp}})
}

// Logout revokes the refresh token in the body, or every refresh token of
// the bearer when the body carries none.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if raw != "" {
		hash := utils.HashRefreshRaw(raw)
		if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
			return apperr.Unavailable(err)
		}
		if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
			return apperr.Unavailable(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
	bearer, ok := middleware.BearerToken(c)
	if !ok {
		return apperr.New(apperr.CodeInvalidInput, "provide a bearer token or refresh_token")
	}
	claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, bearer)
	if err != nil {
		return apperr.New(apperr.CodeUnauthorized, "invalid token")
	}
	uid, _ := claims.UserID()
	if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
		return apperr.Unavailable(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the caller's account.
func (h *AuthHandler) Me(c echo.Context) error {
	a := actor(c)
	u, err := h.Users.GetByID(c.Request().Context(), a.UserID)
	if err != nil {
		return apperr.Unavailable(err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *AuthHandler) userForRefresh(ctx context.Context, c echo.Context) (*model.User, string, error) {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return nil, "", err
	}
	raw := strings.TrimSpace(req.RefreshToken)
	if raw == "" {
		return nil, "", apperr.Validation(map[string]string{"refresh_token": "required"})
	}
	hash := utils.HashRefreshRaw(raw)
	uid, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return nil, "", apperr.Unavailable(err)
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if apperr.CodeOf(err) == apperr.CodeNotFound {
			return nil, "", apperr.New(apperr.CodeUnauthorized, "invalid refresh token")
		}
		return nil, "", apperr.Unavailable(err)
	}
	if !u.IsActive {
		return nil, "", apperr.New(apperr.CodeForbidden, "account is deactivated")
	}
	return u, hash, nil
}

func (h *AuthHandler) issue(ctx context.Context, u *model.User) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, apperr.Unavailable(err)
	}
	return authResp{
		User:    u,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	}, nil
}
