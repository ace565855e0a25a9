// Package api exposes the path engine and the macro library over HTTP.
package api

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/pedro-visualizer/backend/internal/engine"
	"github.com/pedro-visualizer/backend/internal/library"
	"github.com/pedro-visualizer/backend/internal/models"
	"github.com/pedro-visualizer/backend/internal/project"
	"github.com/pedro-visualizer/backend/internal/storage"
)

// Handler handles API requests.
type Handler struct {
	store    storage.Store
	library  *library.Loader
	projects *project.Manager
	expander *engine.Expander
	version  string
}

// NewHandler creates a new API handler.
func NewHandler(store storage.Store, lib *library.Loader, projects *project.Manager, exp *engine.Expander, version string) *Handler {
	return &Handler{
		store:    store,
		library:  lib,
		projects: projects,
		expander: exp,
		version:  version,
	}
}

// HandleHealth returns server health status.
func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.version,
	})
}

// HandleUploadPathFile accepts a path file as base64 JSON and saves it to
// storage. The body must decode into valid path data before it is accepted.
func (h *Handler) HandleUploadPathFile(c echo.Context) error {
	var req struct {
		Name string `json:"name"`
		Data string `json:"data"` // Base64-encoded file content
	}
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if req.Name == "" || req.Data == "" {
		return NewValidationError("name, data")
	}
	if !library.IsPathFile(req.Name) {
		return NewBadRequestError(fmt.Sprintf("unsupported file type: %s", req.Name), nil)
	}

	decoded, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return NewBadRequestError("invalid base64 data", err)
	}
	if _, err := library.Decode(req.Name, decoded); err != nil {
		return NewBadRequestError("file is not valid path data", err)
	}

	info, err := h.store.SaveBytes(req.Name, decoded)
	if err != nil {
		return NewInternalError("failed to save file", err)
	}

	if err := h.library.Reload(info.Name); err != nil {
		fmt.Printf("[API] library reload of %s failed: %v\n", info.Name, err)
	}

	return c.JSON(http.StatusCreated, info)
}

// HandleUploadPathFileForm accepts a path file as multipart form data.
func (h *Handler) HandleUploadPathFileForm(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return NewValidationError("file")
	}
	if !library.IsPathFile(fh.Filename) {
		return NewBadRequestError(fmt.Sprintf("unsupported file type: %s", fh.Filename), nil)
	}

	f, err := fh.Open()
	if err != nil {
		return NewInternalError("failed to read upload", err)
	}
	defer f.Close()

	info, err := h.store.Save(fh.Filename, f)
	if err != nil {
		return NewInternalError("failed to save file", err)
	}

	if err := h.library.Reload(info.Name); err != nil {
		fmt.Printf("[API] library reload of %s failed: %v\n", info.Name, err)
	}

	return c.JSON(http.StatusCreated, info)
}

// HandleRecentFiles returns a list of recently saved path files.
func (h *Handler) HandleRecentFiles(c echo.Context) error {
	files, err := h.store.List(20)
	if err != nil {
		return NewInternalError("failed to list files", err)
	}
	if files == nil {
		files = []*models.FileInfo{}
	}
	return c.JSON(http.StatusOK, files)
}

// HandleGetFile returns metadata for a specific file.
func (h *Handler) HandleGetFile(c echo.Context) error {
	id := c.Param("id")
	info, err := h.store.Get(id)
	if err != nil {
		return NewNotFoundError("file", id)
	}
	return c.JSON(http.StatusOK, info)
}

// HandleDeleteFile removes a path file from storage and the library.
func (h *Handler) HandleDeleteFile(c echo.Context) error {
	id := c.Param("id")
	info, err := h.store.Get(id)
	if err != nil {
		return NewNotFoundError("file", id)
	}
	if err := h.store.Delete(id); err != nil {
		return NewInternalError("failed to delete file", err)
	}
	h.library.Forget(info.Name)
	return c.NoContent(http.StatusNoContent)
}

// HandleRenameFile changes a path file's name. Macro references keep pointing
// at the old name; their instances survive through the salvage policy until
// the user re-targets them.
func (h *Handler) HandleRenameFile(c echo.Context) error {
	id := c.Param("id")
	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return NewValidationError("name")
	}

	old, err := h.store.Get(id)
	if err != nil {
		return NewNotFoundError("file", id)
	}
	oldName := old.Name

	info, err := h.store.Rename(id, req.Name)
	if err != nil {
		return NewBadRequestError("failed to rename file", err)
	}

	h.library.Forget(oldName)
	if err := h.library.Reload(info.Name); err != nil {
		fmt.Printf("[API] library reload of %s failed: %v\n", info.Name, err)
	}
	return c.JSON(http.StatusOK, info)
}

// HandleListMacros returns the names of loaded macro files.
func (h *Handler) HandleListMacros(c echo.Context) error {
	return c.JSON(http.StatusOK, h.library.Names())
}

// HandleGetMacro returns one macro's path data.
func (h *Handler) HandleGetMacro(c echo.Context) error {
	name := c.Param("name")
	data, ok := h.library.Get(name)
	if !ok {
		return NewNotFoundError("macro", name)
	}
	return c.JSON(http.StatusOK, data)
}

// HandleCreateProject registers a new editing project.
func (h *Handler) HandleCreateProject(c echo.Context) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	p := h.projects.Create(req.Name)
	return c.JSON(http.StatusCreated, p)
}

// HandleGetProject returns project metadata.
func (h *Handler) HandleGetProject(c echo.Context) error {
	id := c.Param("id")
	p, ok := h.projects.Get(id)
	if !ok {
		return NewNotFoundError("project", id)
	}
	return c.JSON(http.StatusOK, p)
}

// HandleDeleteProject removes a project.
func (h *Handler) HandleDeleteProject(c echo.Context) error {
	id := c.Param("id")
	if !h.projects.Delete(id) {
		return NewNotFoundError("project", id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleReconcile re-derives a project's flattened geometry from the posted
// start point, line list, and sequence.
func (h *Handler) HandleReconcile(c echo.Context) error {
	id := c.Param("id")
	var input models.PathData
	if err := c.Bind(&input); err != nil {
		return NewBadRequestError("invalid path data", err)
	}

	result, err := h.projects.Reconcile(id, input, h.library.Snapshot())
	if err != nil {
		var recErr *engine.RecursionError
		if errors.As(err, &recErr) {
			return NewRecursiveMacroError(recErr)
		}
		return NewNotFoundError("project", id)
	}
	return c.JSON(http.StatusOK, result)
}

// HandleGetFlattened returns a project's last reconciled output.
func (h *Handler) HandleGetFlattened(c echo.Context) error {
	id := c.Param("id")
	result, ok := h.projects.LastResult(id)
	if !ok {
		return NewNotFoundError("flattened output for project", id)
	}
	return c.JSON(http.StatusOK, result)
}

// HandleGetFlattenedMsgpack returns the last reconciled output in MessagePack
// format for the field renderer.
func (h *Handler) HandleGetFlattenedMsgpack(c echo.Context) error {
	id := c.Param("id")
	result, ok := h.projects.LastResult(id)
	if !ok {
		return NewNotFoundError("flattened output for project", id)
	}

	data, err := msgpack.Marshal(map[string]interface{}{
		"lines":    result.Lines,
		"sequence": result.Sequence,
	})
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// expandRequest is the editor's drag-preview payload: a single placement plus
// the entry state it would be expanded from.
type expandRequest struct {
	Macro       *models.MacroItem `json:"macro"`
	PrevPoint   models.Point      `json:"prevPoint"`
	PrevHeading float64           `json:"prevHeading"`
}

// HandleExpandPreview expands one macro placement without touching any
// project state.
func (h *Handler) HandleExpandPreview(c echo.Context) error {
	var req expandRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid expand request", err)
	}
	if req.Macro == nil || req.Macro.FilePath == "" {
		return NewValidationError("macro.filePath")
	}

	lib := h.library.Snapshot()
	data, ok := lib[req.Macro.FilePath]
	if !ok {
		return NewNotFoundError("macro", req.Macro.FilePath)
	}

	exp, err := h.expander.Expand(req.Macro, req.PrevPoint, req.PrevHeading, data, lib, nil)
	if err != nil {
		var recErr *engine.RecursionError
		if errors.As(err, &recErr) {
			return NewRecursiveMacroError(recErr)
		}
		return NewInternalError("expansion failed", err)
	}
	return c.JSON(http.StatusOK, exp)
}
