package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/classhub/trustgate/internal/api"
	"github.com/classhub/trustgate/internal/api/middleware"
)

const shutdownTimeout = 10 * time.Second

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the token issuer service",
	Long: `Runs the token issuer: login, refresh, logout, validation and role administration.
When server.internal_addr is configured, the service-to-service role routes are
served on that address without end-user authentication.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := f.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log.Info().Msg("Initializing stores and services...")
		stack, err := BuildStack(ctx, cfg, nil)
		if err != nil {
			return fmt.Errorf("building services: %w", err)
		}
		defer func() {
			if err := stack.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to release resources")
			}
		}()

		proxies, err := middleware.ParseTrustedProxies(cfg.Server.TrustedProxies)
		if err != nil {
			return fmt.Errorf("server.trusted_proxies: %w", err)
		}

		srv := api.NewServer(api.Options{
			Auth:      stack.Auth,
			Roles:     stack.RoleAdmin,
			Auditor:   stack.Auditor,
			Verifier:  stack.Verifier,
			Transport: cfg.Token.Transport(),
			Rules:     stack.Rules,
			Tasks:     stack.Tasks,

			TrustedProxies: proxies,
		})

		servers := []*http.Server{{
			Addr:              cfg.Server.Addr,
			Handler:           srv.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}}
		if cfg.Server.InternalAddr != "" {
			servers = append(servers, &http.Server{
				Addr:              cfg.Server.InternalAddr,
				Handler:           srv.InternalRoutes(),
				ReadHeaderTimeout: 10 * time.Second,
			})
		}

		stack.Tasks.Start(ctx)
		return runServers(ctx, servers...)
	},
}

// runServers serves until ctx is done or one listener fails, then shuts all of them down.
func runServers(ctx context.Context, servers ...*http.Server) error {
	errCh := make(chan error, len(servers))
	for _, server := range servers {
		go func() {
			log.Info().Msgf("Starting server on %s...", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("server on %s: %w", server.Addr, err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		log.Error().Err(runErr).Msg("Server crashed")
	}
	log.Info().Msg("Shutting down servers...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	var errs []error
	for _, server := range servers {
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server on %s forced to shutdown: %w", server.Addr, err))
		}
	}
	if err := errors.Join(append(errs, runErr)...); err != nil {
		return err
	}

	log.Info().Msg("Servers exited")
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f.bindConfigFlag(serveCmd.Flags())
	serveCmd.Flags().String("addr", "", "address to listen on (overrides server.addr)")
}
