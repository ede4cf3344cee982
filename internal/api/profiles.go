package api

import (
	"net/http"
	"strings"

	"github.com/eeu479/proxyman-helper/internal/model"
	"github.com/labstack/echo/v4"
)

type createProfileInput struct {
	Name    string   `json:"name"`
	BaseURL *string  `json:"baseUrl"`
	Params  []string `json:"params"`
}

type updateProfileInput struct {
	Name    *string  `json:"name"`
	BaseURL *string  `json:"baseUrl"`
	Params  []string `json:"params"`
}

func findProfile(doc *model.Store, name string) *model.Profile {
	for i := range doc.Profiles {
		if doc.Profiles[i].Name == name {
			return &doc.Profiles[i]
		}
	}
	return nil
}

func (h *Handlers) listProfiles(c echo.Context) error {
	doc := h.state.Store.Read()
	return c.JSON(http.StatusOK, doc.Profiles)
}

func (h *Handlers) getProfile(c echo.Context) error {
	doc := h.state.Store.Read()
	profile := findProfile(&doc, c.Param("name"))
	if profile == nil {
		return errJSON(c, http.StatusNotFound, "Profile not found")
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *Handlers) createProfile(c echo.Context) error {
	var input createProfileInput
	if err := c.Bind(&input); err != nil {
		return errJSON(c, http.StatusBadRequest, "Invalid request body")
	}

	var created model.Profile
	conflict := false
	_, err := h.state.Store.Mutate(func(doc *model.Store) error {
		for _, p := range doc.Profiles {
			if p.Name == input.Name {
				conflict = true
				return nil
			}
		}
		baseURL := ""
		if input.BaseURL != nil {
			baseURL = *input.BaseURL
		}
		created = model.Profile{
			Name:    input.Name,
			BaseURL: baseURL,
			Params:  input.Params,
			Libraries: []model.Library{{
				ID:   model.LocalLibraryID,
				Name: "Local",
				Type: "local",
			}},
		}
		doc.Profiles = append(doc.Profiles, created)
		return nil
	})
	if conflict {
		return errJSON(c, http.StatusConflict, "Profile already exists")
	}
	if err != nil {
		return errJSON(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handlers) updateProfile(c echo.Context) error {
	name := c.Param("name")
	var input updateProfileInput
	if err := c.Bind(&input); err != nil {
		return errJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	if input.Name != nil && *input.Name == "" {
		return errJSON(c, http.StatusBadRequest, "Profile name cannot be empty")
	}

	var updated model.Profile
	status := http.StatusOK
	errMsg := ""

	_, err := h.state.Store.Mutate(func(doc *model.Store) error {
		if input.Name != nil && *input.Name != name {
			for _, p := range doc.Profiles {
				if p.Name == *input.Name {
					status, errMsg = http.StatusConflict, "Profile already exists"
					return nil
				}
			}
		}
		profile := findProfile(doc, name)
		if profile == nil {
			status, errMsg = http.StatusNotFound, "Profile not found"
			return nil
		}
		if input.Name != nil {
			profile.Name = *input.Name
		}
		if input.BaseURL != nil {
			profile.BaseURL = *input.BaseURL
		}
		if input.Params != nil {
			profile.Params = input.Params
		}
		updated = *profile

		if doc.ActiveProfile != nil && *doc.ActiveProfile == name {
			activeName := updated.Name
			doc.ActiveProfile = &activeName
			h.state.SetActiveProfile(activeName)
		}
		return nil
	})
	if err != nil {
		return errJSON(c, http.StatusInternalServerError, err.Error())
	}
	if errMsg != "" {
		return errJSON(c, status, errMsg)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handlers) deleteProfile(c echo.Context) error {
	name := c.Param("name")
	status := http.StatusNoContent
	errMsg := ""

	_, err := h.state.Store.Mutate(func(doc *model.Store) error {
		initialLen := len(doc.Profiles)
		wasActive := doc.ActiveProfile != nil && *doc.ActiveProfile == name

		next := doc.Profiles[:0]
		for _, p := range doc.Profiles {
			if p.Name != name {
				next = append(next, p)
			}
		}
		doc.Profiles = next

		if len(doc.Profiles) == initialLen {
			status, errMsg = http.StatusNotFound, "Profile not found"
			return nil
		}
		if wasActive {
			if len(doc.Profiles) > 0 {
				next := doc.Profiles[0].Name
				doc.ActiveProfile = &next
				h.state.SetActiveProfile(next)
			} else {
				doc.ActiveProfile = nil
				h.state.SetActiveProfile("")
			}
		}
		return nil
	})
	if err != nil {
		return errJSON(c, http.StatusInternalServerError, err.Error())
	}
	if errMsg != "" {
		return errJSON(c, status, errMsg)
	}
	return c.NoContent(http.StatusNoContent)
}

type createSubProfileInput struct {
	Name   string            `json:"name"`
	Params map[string]string `json:"params"`
}

type updateSubProfileInput struct {
	Name   *string           `json:"name"`
	Params map[string]string `json:"params"`
}

func (h *Handlers) createSubProfile(c echo.Context) error {
	profileName := c.Param("name")
	var input createSubProfileInput
	if err := c.Bind(&input); err != nil {
		return errJSON(c, http.StatusBadRequest, "Invalid request body")
	}

	status, errMsg := 0, ""
	var created model.SubProfile
	_, err := h.state.Store.Mutate(func(doc *model.Store) error {
		profile := findProfile(doc, profileName)
		if profile == nil {
			status, errMsg = http.StatusNotFound, "Profile not found"
			return nil
		}
		for _, sub := range profile.SubProfiles {
			if sub.Name == input.Name {
				status, errMsg = http.StatusConflict, "SubProfile already exists"
				return nil
			}
		}
		created = model.SubProfile{Name: input.Name, Params: input.Params}
		profile.SubProfiles = append(profile.SubProfiles, created)
		return nil
	})
	if err != nil {
		return errJSON(c, http.StatusInternalServerError, err.Error())
	}
	if errMsg != "" {
		return errJSON(c, status, errMsg)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handlers) updateSubProfile(c echo.Context) error {
	profileName := c.Param("name")
	subName := c.Param("sub")
	var input updateSubProfileInput
	if err := c.Bind(&input); err != nil {
		return errJSON(c, http.StatusBadRequest, "Invalid request body")
	}

	status, errMsg := 0, ""
	var updated model.SubProfile
	_, err := h.state.Store.Mutate(func(doc *model.Store) error {
		profile := findProfile(doc, profileName)
		if profile == nil {
			status, errMsg = http.StatusNotFound, "Profile not found"
			return nil
		}
		if input.Name != nil && *input.Name == "" {
			status, errMsg = http.StatusBadRequest, "SubProfile name cannot be empty"
			return nil
		}
		if input.Name != nil && *input.Name != subName {
			for _, sub := range profile.SubProfiles {
				if sub.Name == *input.Name {
					status, errMsg = http.StatusConflict, "SubProfile already exists"
					return nil
				}
			}
		}
		var target *model.SubProfile
		for i := range profile.SubProfiles {
			if profile.SubProfiles[i].Name == subName {
				target = &profile.SubProfiles[i]
				break
			}
		}
		if target == nil {
			status, errMsg = http.StatusNotFound, "SubProfile not found"
			return nil
		}
		if input.Name != nil {
			target.Name = *input.Name
		}
		if input.Params != nil {
			target.Params = input.Params
		}
		updated = *target
		return nil
	})
	if err != nil {
		return errJSON(c, http.StatusInternalServerError, err.Error())
	}
	if errMsg != "" {
		return errJSON(c, status, errMsg)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handlers) deleteSubProfile(c echo.Context) error {
	profileName := c.Param("name")
	subName := c.Param("sub")
	status, errMsg := 0, ""
	_, err := h.state.Store.Mutate(func(doc *model.Store) error {
		profile := findProfile(doc, profileName)
		if profile == nil {
			status, errMsg = http.StatusNotFound, "Profile not found"
			return nil
		}
		initialLen := len(profile.SubProfiles)
		next := profile.SubProfiles[:0]
		for _, sub := range profile.SubProfiles {
			if sub.Name != subName {
				next = append(next, sub)
			}
		}
		profile.SubProfiles = next
		if len(profile.SubProfiles) == initialLen {
			status, errMsg = http.StatusNotFound, "SubProfile not found"
		}
		return nil
	})
	if err != nil {
		return errJSON(c, http.StatusInternalServerError, err.Error())
	}
	if errMsg != "" {
		return errJSON(c, status, errMsg)
	}
	return c.NoContent(http.StatusNoContent)
}

type createRequestInput struct {
	Name            string                `json:"name"`
	Method          *string               `json:"method"`
	Path            string                `json:"path"`
	Headers         map[string]string     `json:"headers"`
	QueryParameters map[string]string     `json:"queryParameters"`
	Body            map[string]string     `json:"body"`
	Params          map[string]string     `json:"params"`
	Response        *model.ResponseConfig `json:"response"`
}

func (h *Handlers) createRequest(c echo.Context) error {
	profileName := c.Param("name")
	var input createRequestInput
	if err := c.Bind(&input); err != nil {
		return errJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	method := "GET"
	if input.Method != nil {
		method = *input.Method
	}

	status, errMsg := 0, ""
	var created model.RequestConfig
	_, err := h.state.Store.Mutate(func(doc *model.Store) error {
		profile := findProfile(doc, profileName)
		if profile == nil {
			status, errMsg = http.StatusNotFound, "Profile not found"
			return nil
		}
		for _, req := range profile.Requests {
			if req.Name == input.Name {
				status, errMsg = http.StatusConflict, "Request already exists"
				return nil
			}
		}
		created = model.RequestConfig{
			Name:            input.Name,
			Method:          strings.ToUpper(method),
			Path:            input.Path,
			Headers:         input.Headers,
			QueryParameters: input.QueryParameters,
			Body:            input.Body,
			Params:          input.Params,
			Response:        input.Response,
		}
		profile.Requests = append(profile.Requests, created)
		return nil
	})
	if err != nil {
		return errJSON(c, http.StatusInternalServerError, err.Error())
	}
	if errMsg != "" {
		return errJSON(c, status, errMsg)
	}
	return c.JSON(http.StatusCreated, created)
}

