// Package api implements the control-plane CRUD endpoints and the dispatcher
// catch-all route.
package api

import (
	"net/http"

	"github.com/eeu479/proxyman-helper/internal/appstate"
	"github.com/eeu479/proxyman-helper/internal/dispatch"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Handlers bundles the shared app state for every control-plane route.
type Handlers struct {
	state *appstate.State
}

// NewRouter builds the echo.Echo instance with CORS, the control API, and
// the dispatcher catch-all route.
func NewRouter(state *appstate.State) *echo.Echo {
	h := &Handlers{state: state}
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"*"},
	}))

	e.GET("/api/health", h.health)

	e.GET("/api/profiles", h.listProfiles)
	e.POST("/api/profiles", h.createProfile)
	e.GET("/api/profiles/:name", h.getProfile)
	e.PUT("/api/profiles/:name", h.updateProfile)
	e.DELETE("/api/profiles/:name", h.deleteProfile)

	e.POST("/api/profiles/:name/subprofiles", h.createSubProfile)
	e.PUT("/api/profiles/:name/subprofiles/:sub", h.updateSubProfile)
	e.DELETE("/api/profiles/:name/subprofiles/:sub", h.deleteSubProfile)

	e.POST("/api/profiles/:name/requests", h.createRequest)

	e.GET("/api/profiles/:name/libraries", h.listLibraries)
	e.POST("/api/profiles/:name/libraries", h.addLibrary)
	e.PUT("/api/profiles/:name/libraries/:id", h.updateLibrary)
	e.DELETE("/api/profiles/:name/libraries/:id", h.deleteLibrary)

	e.GET("/api/profiles/:name/blocks", h.getBlocks)
	e.PUT("/api/profiles/:name/blocks", h.putBlocks)

	e.GET("/api/active-profile", h.getActiveProfile)
	e.PUT("/api/active-profile", h.setActiveProfile)

	e.GET("/api/logs", h.getLogs)
	e.GET("/api/request-counts", h.getRequestCounts)

	d := dispatch.New(state)
	e.Any("/*", echo.WrapHandler(http.HandlerFunc(d.Handle)))

	return e
}

func (h *Handlers) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

func errJSON(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{"error": message})
}
