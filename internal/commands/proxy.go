package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Memphis465/nova/internal/proxy"
)

// NewProxyCmd creates the proxy command
func NewProxyCmd(deps *Dependencies, opts *globalOptions) *cobra.Command {
	var listen string
	var origins []string

	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Serve the backend through the offline worker",
		Long: `Serve the Nova backend on a local address. Every request is routed
through the offline worker, so a browser page loaded from the proxy keeps
working from the cache when the server goes away.

The proxy answers /_nova/health and /_nova/metrics itself.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger, closeLog := newLogger(opts.verboseEnabled(), false)
			defer closeLog()

			st, err := deps.openStack(ctx, logger, true)
			if err != nil {
				return err
			}
			defer st.Close()

			cfg := proxy.DefaultConfig()
			cfg.Listen = st.cfg.ProxyListen
			if listen != "" {
				cfg.Listen = listen
			}
			cfg.AllowedOrigins = origins
			cfg.Debug = opts.verbose

			server, err := proxy.NewServer(cfg, st.cfg.BaseURL, st.worker, st.metrics, st.logger)
			if err != nil {
				return err
			}
			cmd.Printf("Proxying %s on http://%s\n", st.cfg.BaseURL, server.Addr())
			return server.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default from proxy_listen)")
	cmd.Flags().StringSliceVar(&origins, "allow-origin", nil, "Allowed CORS origins (default: all)")
	return cmd
}
