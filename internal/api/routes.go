// routes.go - Route registration helpers
package api

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET("/api/health", h.HandleHealth)

	// Path file management
	files := e.Group("/api/files")
	files.POST("/upload", h.HandleUploadPathFile)
	files.POST("/upload/form", h.HandleUploadPathFileForm)
	files.GET("/recent", h.HandleRecentFiles)
	files.GET("/:id", h.HandleGetFile)
	files.DELETE("/:id", h.HandleDeleteFile)
	files.PUT("/:id", h.HandleRenameFile)

	// Macro library
	macros := e.Group("/api/macros")
	macros.GET("", h.HandleListMacros)
	macros.GET("/:name", h.HandleGetMacro)

	// Projects and reconciliation
	projects := e.Group("/api/projects")
	projects.POST("", h.HandleCreateProject)
	projects.GET("/:id", h.HandleGetProject)
	projects.DELETE("/:id", h.HandleDeleteProject)
	projects.POST("/:id/reconcile", h.HandleReconcile)
	projects.GET("/:id/flattened", h.HandleGetFlattened)
	projects.GET("/:id/flattened/msgpack", h.HandleGetFlattenedMsgpack)

	// Stateless expansion preview for the editor
	e.POST("/api/expand", h.HandleExpandPreview)
}
