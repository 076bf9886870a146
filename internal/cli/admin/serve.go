package admin

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/sopbot/internal/api/handlers"
	"github.com/cloo-solutions/sopbot/internal/api/middleware"
	"github.com/cloo-solutions/sopbot/internal/jobs"
	"github.com/cloo-solutions/sopbot/internal/server"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the sopbot API server on the specified port.

The SOP folder comes from --folder or SOPBOT_DATA_PATH. It is indexed on the
first question unless --eager is set. With --watch, changes to .docx files in
the folder trigger a background rebuild.`,
		RunE: runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().StringP("folder", "f", "", "SOP folder to serve (overrides SOPBOT_DATA_PATH)")
	cmd.Flags().Bool("eager", false, "Load or build the index before accepting requests")
	cmd.Flags().Bool("watch", false, "Rebuild the index when the SOP folder changes")
	cmd.Flags().Duration("rebuild-interval", 10*time.Second, "How often pending rebuild requests are processed")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	folderFlag, _ := cmd.Flags().GetString("folder")
	rt, err := setup(ctx, folderFlag, !noMigrate)
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg := rt.cfg
	a := rt.app

	if portFlag, _ := cmd.Flags().GetString("port"); portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}
	folder := cfg.DataPath

	if eager, _ := cmd.Flags().GetBool("eager"); eager {
		if folder == "" {
			return fmt.Errorf("--eager requires --folder or SOPBOT_DATA_PATH")
		}
		report, err := a.Cache.EnsureIndex(ctx, folder)
		if err != nil {
			return fmt.Errorf("failed to index %s: %w", folder, err)
		}
		log.Printf("index %s: %d documents, %d chunks", report.Source, report.Documents, report.Chunks)
	}

	var rebuildWorker *jobs.Worker
	if watch, _ := cmd.Flags().GetBool("watch"); watch {
		if folder == "" {
			return fmt.Errorf("--watch requires --folder or SOPBOT_DATA_PATH")
		}
		interval, _ := cmd.Flags().GetDuration("rebuild-interval")

		rebuilder := jobs.NewRebuildWorker(a.Cache, folder)
		rebuildWorker = jobs.NewWorker(rebuilder, interval)
		go rebuildWorker.Start(ctx)

		watcher := jobs.NewFolderWatcher(folder, func(path string) {
			log.Printf("watcher: %s changed", path)
			rebuilder.RequestRebuild()
		})
		go func() {
			if err := watcher.Watch(ctx); err != nil {
				log.Printf("watcher: stopped: %v", err)
			}
		}()
		log.Printf("watching %s for changes", folder)
	}

	var validator middleware.AuthValidator
	if cfg.APIToken != "" {
		validator = middleware.StaticToken(cfg.APIToken)
	} else {
		log.Println("warning: SOPBOT_API_TOKEN is not set, the API is unauthenticated")
	}

	router := server.NewRouter(server.RouterConfig{
		AuthValidator: validator,
		HealthHandler: handlers.NewHealthHandler(a.Cache),
		AnswerHandler: handlers.NewAnswerHandler(a.Orchestrator),
		IndexHandler:  handlers.NewIndexHandler(a.Cache),
		SearchHandler: handlers.NewSearchHandler(a.Retriever),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if rebuildWorker != nil {
		rebuildWorker.Stop()
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}
