package api

import (
	"net/http"

	"github.com/eeu479/proxyman-helper/internal/model"
	"github.com/labstack/echo/v4"
)

type activeProfileResponse struct {
	ActiveProfile *string `json:"activeProfile"`
}

type setActiveProfileInput struct {
	Name string `json:"name"`
}

func (h *Handlers) getActiveProfile(c echo.Context) error {
	doc := h.state.Store.Read()
	return c.JSON(http.StatusOK, activeProfileResponse{ActiveProfile: doc.ActiveProfile})
}

// setActiveProfile switches the dispatcher's active profile, persisting the
// choice and updating the in-memory pointer under the same lock so the two
// never disagree.
func (h *Handlers) setActiveProfile(c echo.Context) error {
	var input setActiveProfileInput
	if err := c.Bind(&input); err != nil {
		return errJSON(c, http.StatusBadRequest, "Invalid request body")
	}

	status, errMsg := 0, ""
	doc, err := h.state.Store.Mutate(func(doc *model.Store) error {
		if findProfile(doc, input.Name) == nil {
			status, errMsg = http.StatusNotFound, "Profile not found"
			return nil
		}
		name := input.Name
		doc.ActiveProfile = &name
		h.state.SetActiveProfile(name)
		return nil
	})
	if err != nil {
		return errJSON(c, http.StatusInternalServerError, err.Error())
	}
	if errMsg != "" {
		return errJSON(c, status, errMsg)
	}
	return c.JSON(http.StatusOK, activeProfileResponse{ActiveProfile: doc.ActiveProfile})
}

func (h *Handlers) getLogs(c echo.Context) error {
	return c.JSON(http.StatusOK, h.state.Logs.Snapshot())
}

func (h *Handlers) getRequestCounts(c echo.Context) error {
	return c.JSON(http.StatusOK, h.state.Logs.Counts())
}
