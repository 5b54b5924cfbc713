package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	RefreshCookieName = "refreshToken"
	RefreshCookiePath = "/api/v1/auth"

	defaultCookieMaxAge = 7 * 24 * time.Hour
)

// CookieConfig controls the refresh token cookie.
type CookieConfig struct {
	Secure bool
	MaxAge time.Duration
}

func (cc CookieConfig) set(c echo.Context, token string) {
	maxAge := cc.MaxAge
	if maxAge <= 0 {
		maxAge = defaultCookieMaxAge
	}
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     RefreshCookiePath,
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   cc.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (cc CookieConfig) clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     RefreshCookiePath,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   cc.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}
