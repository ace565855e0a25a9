package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/pedro-visualizer/backend/internal/api"
	"github.com/pedro-visualizer/backend/internal/config"
	"github.com/pedro-visualizer/backend/internal/engine"
	"github.com/pedro-visualizer/backend/internal/library"
	"github.com/pedro-visualizer/backend/internal/project"
	"github.com/pedro-visualizer/backend/internal/storage"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := "pedro-visualizer.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Printf("Failed to create directories: %v\n", err)
		os.Exit(1)
	}

	// Initialize storage over the macro/path directory
	fileStore, err := storage.NewLocalStore(cfg.Storage.PathsDirectory)
	if err != nil {
		fmt.Printf("Failed to initialize storage: %v\n", err)
		os.Exit(1)
	}

	// Load the macro library
	loader := library.NewLoader(cfg.Storage.PathsDirectory)
	if err := loader.LoadAll(context.Background()); err != nil {
		fmt.Printf("Failed to load path library: %v\n", err)
		os.Exit(1)
	}

	if cfg.Storage.WatchPaths {
		watcher, err := library.NewWatcher(loader)
		if err != nil {
			fmt.Printf("Warning: path watching disabled: %v\n", err)
		} else {
			watcher.Start()
			defer watcher.Close()
		}
	}

	// Wire the engine: resolver -> expander -> reconciler
	resolver := engine.NewResolver(cfg.Origin())
	expander := engine.NewExpander(resolver)
	reconciler := engine.NewReconciler(expander)

	projectMgr := project.NewManager(reconciler)

	// Background project cleanup
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.Processing.CleanupIntervalMinutes) * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			projectMgr.CleanupOld(time.Duration(cfg.Processing.ProjectTimeoutMinutes) * time.Minute)
		}
	}()

	h := api.NewHandler(fileStore, loader, projectMgr, expander, Version)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api.ErrorHandler

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !cfg.Server.EnableRequestLogging {
				return true
			}
			return c.Request().URL.Path == "/api/health"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	if cfg.Server.GzipLevel > 0 {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level: cfg.Server.GzipLevel,
		}))
	}

	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	if cfg.Server.EnableCORS {
		origins := cfg.Server.AllowOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}

	api.RegisterRoutes(e, h)

	addr := fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.Port)
	fmt.Printf("Pedro Path Visualizer backend %s (built %s) listening on %s\n", Version, BuildTime, addr)
	if err := e.Start(addr); err != nil && !strings.Contains(err.Error(), "Server closed") {
		fmt.Printf("Server error: %v\n", err)
		os.Exit(1)
	}
}
