package routes

import (
	"net/http"
	"time"

	"badgeauth/api/handler"
	"badgeauth/api/middleware"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type Router struct {
	Echo      *echo.Echo
	BadgeAuth *handler.BadgeAuthHandler
	AuthRate  *middleware.RateLimiter
}

func NewRouter(e *echo.Echo, badgeAuth *handler.BadgeAuthHandler) *Router {
	return &Router{
		Echo:      e,
		BadgeAuth: badgeAuth,
		AuthRate:  middleware.NewRateLimiter(rate.Limit(2), 6, 10*time.Minute),
	}
}

func (r *Router) RegisterRoutes() {
	e := r.Echo

	e.POST("/api/badge-auth", r.BadgeAuth.Handle, r.AuthRate.Middleware())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
}
