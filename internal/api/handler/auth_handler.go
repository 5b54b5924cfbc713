package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
	cookie      CookieConfig
}

func NewAuthHandler(authService ports.AuthService, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{authService: authService, cookie: cookie}
}

// Register creates a new user account and starts its first session.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  envelope{data=authData}
// @Failure      400   {object}  ErrorBody
// @Failure      409   {object}  ErrorBody
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		return err
	}

	h.cookie.set(c, res.Tokens.RefreshToken)
	return c.JSON(http.StatusCreated, success(authData{User: res.User, AccessToken: res.Tokens.AccessToken}))
}

// Login authenticates a user and replaces any previous session.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  envelope{data=authData}
// @Failure      400   {object}  ErrorBody
// @Failure      401   {object}  ErrorBody
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), ports.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	h.cookie.set(c, res.Tokens.RefreshToken)
	return c.JSON(http.StatusOK, success(authData{User: res.User, AccessToken: res.Tokens.AccessToken}))
}

// RefreshToken rotates the refresh cookie and returns a new access token.
//
// @Summary      Refresh the access token
// @Tags         auth
// @Produce      json
// @Success      200   {object}  envelope{data=accessTokenData}
// @Failure      401   {object}  ErrorBody
// @Router       /auth/refresh-token [post]
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	cookie, err := c.Cookie(RefreshCookieName)
	if err != nil || cookie.Value == "" {
		return domain.ErrMissingRefreshToken
	}

	pair, err := h.authService.Refresh(c.Request().Context(), cookie.Value)
	if err != nil {
		h.cookie.clear(c)
		return err
	}

	h.cookie.set(c, pair.RefreshToken)
	return c.JSON(http.StatusOK, success(accessTokenData{AccessToken: pair.AccessToken}))
}

// Logout ends the caller's session.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200   {object}  envelope
// @Failure      401   {object}  ErrorBody
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	userID, ok := UserIDFrom(c.Request().Context())
	if !ok {
		return domain.ErrMissingAuthenticated
	}

	if err := h.authService.Logout(c.Request().Context(), userID); err != nil {
		return err
	}

	h.cookie.clear(c)
	return c.JSON(http.StatusOK, success(nil))
}

// Profile returns the authenticated user.
//
// @Summary      Current user profile
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200   {object}  envelope{data=profileData}
// @Failure      401   {object}  ErrorBody
// @Failure      404   {object}  ErrorBody
// @Router       /auth/profile [get]
func (h *AuthHandler) Profile(c echo.Context) error {
	userID, ok := UserIDFrom(c.Request().Context())
	if !ok {
		return domain.ErrMissingAuthenticated
	}

	user, err := h.authService.GetProfile(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, success(profileData{User: user}))
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domain.NewBadRequest("Invalid request body")
	}
	return c.Validate(req)
}

// ErrorBody is the error envelope rendered by the API error handler.
type ErrorBody struct {
	Status  string `json:"status" example:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}
