package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/marte113/Player-On-Caption/internal/config"
	"github.com/marte113/Player-On-Caption/internal/httpapi"
	"github.com/marte113/Player-On-Caption/pkg/icron"
	"github.com/marte113/Player-On-Caption/pkg/log"
)

type maintainer interface {
	Maintain(ctx context.Context) error
}

type cronEngine interface {
	AddFunc(spec string, cmd func()) (cron.EntryID, error)
	Start()
	Stop() context.Context
}

type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP/WebSocket bridge for the browser extension",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTP.Addr = addr
			}

			if err := os.MkdirAll(cfg.System.DataDir, 0o755); err != nil {
				return fmt.Errorf("create data dir: %w", err)
			}
			lock := flock.New(cfg.LockPath())
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !ok {
				return errors.New("another bridge is already running for this data dir")
			}
			defer func() {
				if err := lock.Unlock(); err != nil {
					log.Warn("failed to release lock: %v", err)
				}
			}()

			tr, err := newTranslator(cfg)
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			srv := httpapi.NewServer(tr,
				httpapi.WithStore(store),
				httpapi.WithCORSOrigins(cfg.HTTP.CORSOrigins),
			)
			return runWithComponents(cmd.Context(), cfg, store, cron.New(), srv)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: $SERVER_ADDR)")
	return cmd
}

// runWithComponents serves until ctx ends, running cache maintenance on the
// configured schedule.
func runWithComponents(ctx context.Context, cfg *config.Config, store maintainer, cronEngine cronEngine, srv httpServer) error {
	if spec := cfg.HTTP.MaintenanceCron; spec != "" {
		_, err := cronEngine.AddFunc(spec, func() {
			if err := store.Maintain(ctx); err != nil {
				log.Warn("cache maintenance failed: %v", err)
				return
			}
			log.Info("cache maintenance done")
		})
		if err != nil {
			return fmt.Errorf("schedule cache maintenance: %w", err)
		}
		if info, err := icron.GetTriggerInfo(spec, time.Now()); err == nil {
			log.Info("next cache maintenance at %s (in %s)", info.Next.Format(time.DateTime), info.TimeUntilNext.Round(time.Second))
		}
	}
	cronEngine.Start()
	defer func() {
		<-cronEngine.Stop().Done()
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(cfg.HTTP.Addr)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
