package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/vitrine/vitrine/internal/api"
	"github.com/vitrine/vitrine/internal/catalog"
	"go.etcd.io/bbolt"
)

type Server struct {
	config     *Config
	logger     *logrus.Logger
	router     *mux.Router
	httpServer *http.Server
	db         *bbolt.DB
	catalog    *catalog.Manager
}

func New(config *Config, logger *logrus.Logger) (*Server, error) {
	if err := os.MkdirAll(filepath.Dir(config.DatabasePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := bbolt.Open(config.DatabasePath, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Server{
		config:  config,
		logger:  logger,
		router:  mux.NewRouter(),
		db:      db,
		catalog: catalog.NewManager(db, logger),
	}

	s.setupRoutes()

	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestLogger)

	apiHandler := api.NewHandler(s.catalog, s.Reindex, s.logger)

	apiRouter := s.router.PathPrefix("/api/v1").Subrouter()
	apiRouter.HandleFunc("/health", apiHandler.Health).Methods("GET")
	apiRouter.HandleFunc("/templates", apiHandler.ListTemplates).Methods("GET")
	apiRouter.HandleFunc("/templates/search", apiHandler.SearchTemplates).Methods("GET")
	apiRouter.HandleFunc("/templates/{path:.+}", apiHandler.GetTemplate).Methods("GET")
	apiRouter.HandleFunc("/categories", apiHandler.ListCategories).Methods("GET")
	apiRouter.HandleFunc("/reindex", apiHandler.TriggerReindex).Methods("POST")

	s.router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods("GET")

	s.router.PathPrefix("/").Handler(s.staticHandler()).Methods("GET", "HEAD")
}

// staticHandler serves the content root, rewriting the root path to
// index.html and attaching cache and hardening headers.
func (s *Server) staticHandler() http.Handler {
	fileServer := http.FileServer(http.Dir(s.config.ContentRoot))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "SAMEORIGIN")

		switch {
		case strings.HasSuffix(r.URL.Path, ".css") || strings.HasSuffix(r.URL.Path, ".js"):
			w.Header().Set("Cache-Control", "public, max-age=31536000")
		case strings.HasSuffix(r.URL.Path, ".json"):
			// Template files may be rebuilt underneath us.
			w.Header().Set("Cache-Control", "no-cache")
		}

		if r.URL.Path == "/" {
			r.URL.Path = "/index.html"
		}

		fileServer.ServeHTTP(w, r)
	})
}

// Reindex rescans the content root and swaps the catalog to the result.
func (s *Server) Reindex() error {
	records, err := catalog.NewScanner(s.config.ContentRoot, s.logger).Scan()
	if err != nil {
		return fmt.Errorf("failed to scan content root: %w", err)
	}
	if err := s.catalog.ReplaceAll(records); err != nil {
		return fmt.Errorf("failed to store catalog: %w", err)
	}

	s.logger.WithField("templates", len(records)).Info("Catalog reindexed")
	return nil
}

func (s *Server) Start(ctx context.Context) error {
	if err := s.Reindex(); err != nil {
		// The site can still serve without a catalog; the API reports
		// what it has.
		s.logger.WithError(err).Error("Initial reindex failed")
	}

	if s.config.Watch {
		watcher, err := catalog.NewWatcher(s.config.ContentRoot, func() {
			if err := s.Reindex(); err != nil {
				s.logger.WithError(err).Error("Reindex failed")
			}
		}, s.logger)
		if err != nil {
			s.logger.WithError(err).Warn("Content watcher unavailable")
		} else {
			go watcher.Run(ctx)
		}
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	if s.config.Port == "0" {
		addr := listener.Addr().(*net.TCPAddr)
		s.config.Port = fmt.Sprintf("%d", addr.Port)
		s.logger.Infof("Using dynamic port: %s", s.config.Port)
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Infof("Serving %s on %s", s.config.ContentRoot, listener.Addr().String())

		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- err
		} else {
			errChan <- nil
		}
	}()

	select {
	case <-ctx.Done():
		if err := s.shutdown(); err != nil {
			return err
		}
		<-errChan
		return nil
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}
}

func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.WithError(err).Error("Failed to shutdown HTTP server")
	}

	if err := s.db.Close(); err != nil {
		s.logger.WithError(err).Error("Failed to close database")
		return err
	}

	return nil
}

func (s *Server) GetPort() string {
	return s.config.Port
}
