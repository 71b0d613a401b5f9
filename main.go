package main

import (
	"net/http"
	"os"
	"time"

	"github.com/bsaid97/go-border-snapper/boundary"
	"github.com/bsaid97/go-border-snapper/config"
	"github.com/bsaid97/go-border-snapper/country"
	"github.com/bsaid97/go-border-snapper/logger"
	"github.com/bsaid97/go-border-snapper/pipeline"
)

func main() {
	log := logger.Setup()
	log.Info("=== Starting Border Snapper Server ===")

	cfg, err := config.Load()
	if err != nil {
		log.Error("config", "err", err)
		os.Exit(1)
	}

	provider, err := boundary.NewProviderFromConfig(cfg)
	if err != nil {
		log.Error("boundary provider", "err", err)
		os.Exit(1)
	}
	defer provider.Close()
	runner := pipeline.NewRunner(provider, country.NewResolver(cfg.CountryOnlineLookup))

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           newRouter(runner),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info("Server is listening", "addr", cfg.ListenAddr, "cache_dir", cfg.BoundaryCacheDir)
	if err := srv.ListenAndServe(); err != nil {
		log.Error("Server failed to start", "err", err)
		os.Exit(1)
	}
}
