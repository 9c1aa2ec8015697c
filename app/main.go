package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"statuspage/app/internal/alerts"
	"statuspage/app/internal/auth"
	"statuspage/app/internal/cache"
	"statuspage/app/internal/collector"
	"statuspage/app/internal/config"
	"statuspage/app/internal/database"
	"statuspage/app/internal/fetcher"
	"statuspage/app/internal/handlers"
	"statuspage/app/internal/security"
)

func main() {
	once := flag.Bool("once", false, "fetch and aggregate the log once, print the report set and exit")
	format := flag.String("format", "json", "output format for -once: json or yaml")
	repo := flag.String("repo", "", "GitHub repository (owner/name) whose log.csv to read")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	client := fetcher.NewClient(cfg.FetchTimeout)
	client.APIBase = cfg.GitHubAPIURL

	if *once {
		if err := runOnce(cfg, client, *repo, *format, os.Stdout); err != nil {
			log.Printf("%v", err)
			os.Exit(1)
		}
		return
	}

	if err := database.Init(cfg.DBPath); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	snapshots := cache.New[*collector.Snapshot](cfg.CacheTTL)
	defer snapshots.Stop()
	repoCache := cache.New[fetcher.RepoInfo](time.Hour)
	defer repoCache.Stop()

	col := collector.New(client, snapshots, cfg.Options())
	col.Persist = true
	col.KeepRuns = cfg.KeepRuns
	col.KeepLogs = cfg.KeepLogs

	if ac := cfg.Alerts(); ac.Enabled() {
		watched, err := cfg.SourceURL("")
		if err != nil {
			log.Fatalf("Invalid log source: %v", err)
		}
		alertMgr := alerts.NewManager(ac)
		defer alertMgr.Wait()
		col.OnRefresh = alertMgr.Hook(watched)
		log.Printf("Status change notifications enabled for %s", watched)
	}

	authMgr := auth.NewAuth(cfg.AdminUser, cfg.AdminHash, cfg.HmacSecret, cfg.InsecureDev, cfg.SessionMaxAgeS)
	if !authMgr.Enabled() {
		log.Println("AUTH_SECRET not set - admin API disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.EnableScheduler {
		url, err := cfg.SourceURL(*repo)
		if err != nil {
			log.Fatalf("Invalid log source: %v", err)
		}
		go col.Run(ctx, url, cfg.RefreshInterval)
		log.Printf("Scheduler started with %v interval for %s", cfg.RefreshInterval, url)
	}

	lim := handlers.NewLimiters()
	defer lim.Stop()

	deps := &handlers.Deps{
		Config:    cfg,
		Auth:      authMgr,
		Collector: col,
		Repos:     client,
		RepoCache: repoCache,
		Guard:     security.NewLoginGuard(5, 24*time.Hour),
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handlers.SetupRoutes(deps, lim),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.FetchTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	_ = database.InsertLog(database.LogLevelInfo, database.LogCategorySystem, "", "Server starting", "port="+cfg.Port)
	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

// runOnce fetches the log a single time and writes the report set to out
func runOnce(cfg *config.Config, client collector.LogFetcher, repo, format string, out io.Writer) error {
	switch format {
	case "json", "yaml", "yml", "":
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	url, err := cfg.SourceURL(repo)
	if err != nil {
		return fmt.Errorf("invalid log source: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.FetchTimeout+5*time.Second)
	defer cancel()

	col := collector.New(client, nil, cfg.Options())
	snap, err := col.Refresh(ctx, url, collector.SourceCLI)
	if err != nil {
		return err
	}

	switch format {
	case "yaml", "yml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(snap.Set); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap.Set)
	}
}
