package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/auto-analyst/internal/server"
	"github.com/KaramelBytes/auto-analyst/internal/session"
)

var (
	serveAddr      string
	serveBodyMB    int
	serveQueryTime int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve sessions over HTTP (upload a CSV, then ask questions)",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		addr := serveAddr
		if addr == "" {
			addr = c.ServeAddr
		}
		ttl := c.SessionTTL()
		if ttl <= 0 {
			return fmt.Errorf("session_ttl_min must be > 0")
		}

		m := session.NewManager(ttl, time.Minute, sessionOptions(c, flagRuntimeOptions(), logger))
		srv := server.New(m, logger, server.Options{
			Addr:         addr,
			BodyLimit:    serveBodyMB * 1024 * 1024,
			QueryTimeout: time.Duration(serveQueryTime) * time.Second,
		})

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Run() }()
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Listening on %s (sessions expire after %s idle)\n", addr, ttl)

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sig)

		select {
		case err := <-errCh:
			m.Close()
			return err
		case s := <-sig:
			logger.Info("shutting down", zap.String("signal", s.String()))
		}
		if err := srv.Shutdown(); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		if err := <-errCh; err != nil {
			logger.Debug("listener stopped", zap.Error(err))
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config serve_addr, :8080)")
	serveCmd.Flags().IntVar(&serveBodyMB, "body-limit-mb", 10, "maximum upload size in MB")
	serveCmd.Flags().IntVar(&serveQueryTime, "query-timeout", 0, "seconds allowed per question (0 = model client timeouts only)")
}
