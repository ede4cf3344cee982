package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/eeu479/proxyman-helper/internal/blockfs"
	"github.com/eeu479/proxyman-helper/internal/model"
	"github.com/labstack/echo/v4"
)

type addLibraryInput struct {
	Name       string `json:"name"`
	FolderPath string `json:"folderPath"`
}

type updateLibraryInput struct {
	Name       *string `json:"name"`
	FolderPath *string `json:"folderPath"`
}

func findLibrary(profile *model.Profile, id string) *model.Library {
	for i := range profile.Libraries {
		if profile.Libraries[i].ID == id {
			return &profile.Libraries[i]
		}
	}
	return nil
}

func (h *Handlers) listLibraries(c echo.Context) error {
	doc := h.state.Store.Read()
	profile := findProfile(&doc, c.Param("name"))
	if profile == nil {
		return errJSON(c, http.StatusNotFound, "Profile not found")
	}
	return c.JSON(http.StatusOK, profile.Libraries)
}

func (h *Handlers) addLibrary(c echo.Context) error {
	profileName := c.Param("name")
	var input addLibraryInput
	if err := c.Bind(&input); err != nil {
		return errJSON(c, http.StatusBadRequest, "Invalid request body")
	}
	if input.FolderPath == "" {
		return errJSON(c, http.StatusBadRequest, "folderPath is required")
	}

	absPath, err := filepath.Abs(input.FolderPath)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "Invalid folderPath")
	}
	canonicalPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "folderPath must be an existing directory")
	}
	info, statErr := os.Stat(canonicalPath)
	if statErr != nil || !info.IsDir() {
		return errJSON(c, http.StatusBadRequest, "folderPath must be an existing directory")
	}
	if err := os.MkdirAll(filepath.Join(canonicalPath, "blocks"), 0o755); err != nil {
		return errJSON(c, http.StatusInternalServerError, err.Error())
	}

	status, errMsg := 0, ""
	var created model.Library
	_, err = h.state.Store.Mutate(func(doc *model.Store) error {
		profile := findProfile(doc, profileName)
		if profile == nil {
			status, errMsg = http.StatusNotFound, "Profile not found"
			return nil
		}
		folderPath := canonicalPath
		created = model.Library{
			ID:         fmt.Sprintf("folder-%d", time.Now().UnixMilli()),
			Name:       input.Name,
			Type:       "remote",
			FolderPath: &folderPath,
		}
		profile.Libraries = append(profile.Libraries, created)
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

func (h *Handlers) updateLibrary(c echo.Context) error {
	profileName := c.Param("name")
	id := c.Param("id")
	var input updateLibraryInput
	if err := c.Bind(&input); err != nil {
		return errJSON(c, http.StatusBadRequest, "Invalid request body")
	}

	status, errMsg := 0, ""
	var updated model.Library
	_, err := h.state.Store.Mutate(func(doc *model.Store) error {
		profile := findProfile(doc, profileName)
		if profile == nil {
			status, errMsg = http.StatusNotFound, "Profile not found"
			return nil
		}
		library := findLibrary(profile, id)
		if library == nil {
			status, errMsg = http.StatusNotFound, "Library not found"
			return nil
		}
		if input.Name != nil {
			library.Name = *input.Name
		}
		if input.FolderPath != nil {
			if library.ID == model.LocalLibraryID {
				status, errMsg = http.StatusBadRequest, "Cannot set folderPath on the local library"
				return nil
			}
			folderPath := *input.FolderPath
			library.FolderPath = &folderPath
		}
		updated = *library
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

func (h *Handlers) deleteLibrary(c echo.Context) error {
	profileName := c.Param("name")
	id := c.Param("id")
	if id == model.LocalLibraryID {
		return errJSON(c, http.StatusBadRequest, "Cannot delete the local library")
	}

	status, errMsg := 0, ""
	_, err := h.state.Store.Mutate(func(doc *model.Store) error {
		profile := findProfile(doc, profileName)
		if profile == nil {
			status, errMsg = http.StatusNotFound, "Profile not found"
			return nil
		}
		initialLen := len(profile.Libraries)
		next := profile.Libraries[:0]
		for _, lib := range profile.Libraries {
			if lib.ID != id {
				next = append(next, lib)
			}
		}
		profile.Libraries = next
		if len(profile.Libraries) == initialLen {
			status, errMsg = http.StatusNotFound, "Library not found"
			return nil
		}

		remaining := profile.ActiveBlocks[:0]
		for _, b := range profile.ActiveBlocks {
			if b.SourceLibraryID == nil || *b.SourceLibraryID != id {
				remaining = append(remaining, b)
			}
		}
		profile.ActiveBlocks = remaining
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

// getBlocks assembles the profile's local blocks plus every remote library's
// on-disk blocks into the payload the UI renders.
func (h *Handlers) getBlocks(c echo.Context) error {
	doc := h.state.Store.Read()
	profile := findProfile(&doc, c.Param("name"))
	if profile == nil {
		return errJSON(c, http.StatusNotFound, "Profile not found")
	}

	all := make([]model.Block, 0, len(profile.LibraryBlocks))
	for _, b := range profile.LibraryBlocks {
		if b.SourceLibraryID == nil {
			local := model.LocalLibraryID
			b.SourceLibraryID = &local
		}
		all = append(all, b)
	}
	for _, lib := range profile.Libraries {
		if lib.Type != "remote" || lib.FolderPath == nil {
			continue
		}
		all = append(all, blockfs.ReadBlocks(*lib.FolderPath, lib.ID)...)
	}

	payload := model.BlocksPayload{
		LibraryBlocks: all,
		ActiveBlocks:  profile.ActiveBlocks,
		Categories:    profile.Categories,
	}
	return c.JSON(http.StatusOK, payload)
}

// putBlocks partitions the incoming blocks by sourceLibraryId (defaulting to
// "local"), persists the local partition inline and each remote partition to
// its library folder via blockfs.WriteBlocks, then replaces activeBlocks and
// categories.
func (h *Handlers) putBlocks(c echo.Context) error {
	profileName := c.Param("name")
	var input model.BlocksPayload
	if err := c.Bind(&input); err != nil {
		return errJSON(c, http.StatusBadRequest, "Invalid request body")
	}

	byLibrary := map[string][]model.Block{}
	for _, b := range input.LibraryBlocks {
		libID := model.LocalLibraryID
		if b.SourceLibraryID != nil && *b.SourceLibraryID != "" {
			libID = *b.SourceLibraryID
		}
		byLibrary[libID] = append(byLibrary[libID], b)
	}

	status, errMsg := 0, ""
	var updated model.BlocksPayload
	_, err := h.state.Store.Mutate(func(doc *model.Store) error {
		profile := findProfile(doc, profileName)
		if profile == nil {
			status, errMsg = http.StatusNotFound, "Profile not found"
			return nil
		}

		for _, lib := range profile.Libraries {
			if lib.Type != "remote" || lib.FolderPath == nil {
				continue
			}
			if writeErr := blockfs.WriteBlocks(*lib.FolderPath, byLibrary[lib.ID]); writeErr != nil {
				status, errMsg = http.StatusInternalServerError, writeErr.Error()
				return nil
			}
		}

		profile.LibraryBlocks = byLibrary[model.LocalLibraryID]
		profile.ActiveBlocks = input.ActiveBlocks
		profile.Categories = input.Categories
		updated = model.BlocksPayload{
			LibraryBlocks: profile.LibraryBlocks,
			ActiveBlocks:  profile.ActiveBlocks,
			Categories:    profile.Categories,
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
