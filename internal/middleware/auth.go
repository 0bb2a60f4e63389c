// Package middleware defines route based authentication and request tracking
package middleware

import (
	"solace-api/internal/setup"
	"solace-api/internal/shared"
	"solace-api/internal/users"

	"github.com/labstack/echo/v4"
)

type UserMiddleware struct {
	um *users.Manager
}

func NewUserMiddleware(um *users.Manager) *UserMiddleware {
	return &UserMiddleware{um: um}
}

func (u *UserMiddleware) ExtractUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(cc echo.Context) error {
		c := cc.(*setup.Context)
		c.User = nil

		apiKey, err := shared.ExtractAPIKey(c)
		if err != nil {
			return next(c)
		}
		user, err := u.um.GetUserMetadataFromKey(c.Request().Context(), apiKey)
		if err != nil {
			return next(c)
		}
		c.User = user
		c.Log = c.Log.With("user_id", c.User.UserID)
		return next(c)
	}
}

func (u *UserMiddleware) RequireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(cc echo.Context) error {
		c := cc.(*setup.Context)
		if c.User == nil {
			return c.String(401, "unauthorized")
		}
		return next(c)
	}
}
