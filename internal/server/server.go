package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gossipsearch/config"
	"gossipsearch/internal/search"
	"gossipsearch/internal/vectorstore"
	"gossipsearch/internal/vectorstore/pgvector"
	"gossipsearch/internal/vectorstore/pinecone"
	"gossipsearch/provider"
)

// Run builds the collaborator clients once, wires the routes, and serves
// until the process exits.
func Run(cfg *config.Config) error {
	embedder, err := provider.NewEmbedder(cfg.Embedding)
	if err != nil {
		return err
	}

	store, err := BuildStore(cfg)
	if err != nil {
		return err
	}

	svcLogger := log.New(log.Writer(), "[SEARCH] ", log.LstdFlags)
	svc := search.NewService(embedder, store, svcLogger)

	history, err := NewHistoryLog(cfg.Server.HistoryFile, cfg.Server.HistoryLimit)
	if err != nil {
		return err
	}

	e := newEcho()
	(&SearchHandler{Service: svc, History: history}).Register(e)
	(&HistoryHandler{Log: history}).Register(e)

	return e.Start(cfg.Server.Address)
}

// BuildStore constructs the configured vector-store client.
func BuildStore(cfg *config.Config) (vectorstore.Store, error) {
	switch cfg.Store.Backend {
	case "pinecone":
		return pinecone.NewStorage(pinecone.Config{
			APIKey:     cfg.Store.Pinecone.APIKey,
			ControlURL: cfg.Store.Pinecone.ControlURL,
			IndexHost:  cfg.Store.Pinecone.IndexHost,
			Index:      cfg.Store.Index,
			Cloud:      cfg.Store.Pinecone.Cloud,
			Region:     cfg.Store.Pinecone.Region,
			Timeout:    cfg.Store.Pinecone.Timeout,
		}), nil
	case "pgvector":
		dsn, err := cfg.Databases.Postgres.DSN()
		if err != nil {
			return nil, err
		}
		return pgvector.NewStorage(dsn, cfg.Embedding.Dimension)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.Store.Backend)
	}
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	return e
}
