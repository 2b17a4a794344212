package cmd

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/harnesslab/gimpbridge/internal/dispatch"
	"github.com/harnesslab/gimpbridge/internal/engine"
	"github.com/harnesslab/gimpbridge/internal/history"
	"github.com/harnesslab/gimpbridge/internal/server"
	"github.com/harnesslab/gimpbridge/internal/session"
	"github.com/harnesslab/gimpbridge/internal/state"
	"github.com/harnesslab/gimpbridge/internal/watcher"
)

var (
	serveHost       string
	servePort       int
	serveFakeEngine bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bridge daemon in the foreground",
	RunE: func(cmd *cobra.Command, args []string) error {
		host := serveHost
		if host == "" {
			host = cfg.Host
		}
		port := servePort
		if port == 0 {
			port = cfg.Port
		}
		addr := net.JoinHostPort(host, strconv.Itoa(port))

		logger, err := zap.NewProduction()
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		defer logger.Sync()

		store, err := state.NewStore(cfg.StateDir)
		if err != nil {
			return err
		}

		var eng engine.Engine
		if serveFakeEngine {
			eng = engine.NewFake()
		} else {
			eng = &engine.Gimp{Binary: cfg.GimpBinary, ProfileDir: cfg.GimpProfileDir}
		}

		sess := session.New(addr)
		hist := history.NewManager(store.Dir(), cfg.HistoryDepth)
		d := dispatch.New(eng, sess, hist, version, logger)
		srv := server.New(addr, d, sess, logger)

		w, err := watcher.New(sess, logger)
		if err != nil {
			return fmt.Errorf("starting file watcher: %w", err)
		}

		record := &state.ConnectionRecord{
			Host:      host,
			Port:      port,
			PID:       os.Getpid(),
			SessionID: sess.ID,
			StartedAt: time.Now(),
		}
		if err := store.Save(record); err != nil {
			return err
		}
		defer store.Delete()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error { return srv.Run(ctx) })
		g.Go(func() error { return w.Run(ctx) })
		g.Go(func() error {
			// Projects are opened through the dispatcher, so the watch set
			// lags slightly behind the session. A periodic resync is enough.
			ticker := time.NewTicker(2 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					for _, path := range sess.Projects() {
						if err := w.Track(path); err != nil {
							logger.Warn("cannot watch project", zap.String("path", path), zap.Error(err))
						}
					}
				}
			}
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "bind host (default from config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "bind port (default from config)")
	serveCmd.Flags().BoolVar(&serveFakeEngine, "fake-engine", false, "use the in-process fake engine instead of GIMP")
	rootCmd.AddCommand(serveCmd)
}
