package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"cornerstone/api/internal/app"
	"cornerstone/api/internal/blob"
	"cornerstone/api/internal/config"
	"cornerstone/api/internal/docstore"
	"cornerstone/api/internal/identity"
	"cornerstone/api/internal/search"
	"cornerstone/api/internal/services"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	ctx := context.Background()

	local, err := docstore.NewLocalBackend(cfg.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("local store init failed")
	}

	// Postgres wins when both remotes are configured. Either way the local
	// file store keeps serving through remote outages.
	var remote docstore.Backend
	switch {
	case strings.TrimSpace(cfg.PostgresDSN) != "":
		db, err := docstore.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Warn().Err(err).Msg("postgres unavailable, continuing on local store")
			break
		}
		defer db.Close()
		pg := docstore.NewPostgresBackend(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Warn().Err(err).Msg("postgres schema setup failed, continuing on local store")
		} else {
			remote = pg
			log.Info().Msg("using postgres document store")
		}
	case strings.TrimSpace(cfg.RedisURL) != "":
		rb, err := docstore.NewRedisBackend(cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, continuing on local store")
			break
		}
		defer rb.Close()
		remote = rb
		log.Info().Msg("using redis document store")
	default:
		log.Info().Msg("no remote document store configured, running on local files")
	}

	store := docstore.New(remote, local, log)
	registry := services.NewRegistry(store)

	var provider identity.Provider
	if remote != nil {
		provider = identity.NewStoreProvider(remote, log)
	}
	gate := identity.NewGate(provider, cfg.DataDir, cfg.ProbeTimeout(), log)
	gate.Initialize(ctx)

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, log)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, search.NewScan(store), log)

	var blobRemote blob.Backend
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		mb, err := blob.NewMinioBackend(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Warn().Err(err).Msg("minio unavailable, document content stays on local disk")
		} else {
			blobRemote = mb
		}
	}
	blobLocal, err := blob.NewLocalBackend(filepath.Join(cfg.DataDir, "blobs"))
	if err != nil {
		log.Fatal().Err(err).Msg("blob store init failed")
	}
	blobs := blob.New(blobRemote, blobLocal, log)

	service := app.NewService(cfg, gate, store, registry, searchService, blobs, log)
	service.Bootstrap(ctx)

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, log)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("cornerstone api listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}
