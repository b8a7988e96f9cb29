package cmd

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/classhub/trustgate/internal/api/middleware"
	"github.com/classhub/trustgate/internal/gateway"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Run the edge gateway",
	Long: `Runs the edge gateway: every request to a non-public path must carry a valid
bearer token, otherwise it is rejected with 401 before it reaches a downstream
service. Verified identities are forwarded in the X-Auth-* headers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := f.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Gateway.Addr = addr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		stack, err := BuildEdgeStack(ctx, cfg, nil)
		if err != nil {
			return fmt.Errorf("building verifier: %w", err)
		}
		defer func() {
			_ = stack.Close()
		}()
		log.Info().Strs("public", cfg.Gateway.PublicPaths).Bool("revocation", *cfg.Gateway.CheckRevocation).Msg("edge verifier ready")

		proxy, err := gateway.NewProxy(cfg.Gateway.Routes)
		if err != nil {
			return fmt.Errorf("building routes: %w", err)
		}
		for _, rt := range cfg.Gateway.Routes {
			log.Info().Str("prefix", rt.Prefix).Str("upstream", rt.Upstream).Msg("route registered")
		}

		handler := gateway.Handler(stack.Verifier, cfg.Token.Transport(),
			middleware.NewPublicPaths(cfg.Gateway.PublicPaths...), proxy)

		return runServers(ctx, &http.Server{
			Addr:              cfg.Gateway.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		})
	},
}

func init() {
	rootCmd.AddCommand(gatewayCmd)

	f.bindConfigFlag(gatewayCmd.Flags())
	gatewayCmd.Flags().String("addr", "", "address to listen on (overrides gateway.addr)")
}
