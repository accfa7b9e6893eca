package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/opensurgery/internal/api"
)

func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the compiler and estimator over HTTP",
		Long: `Serve starts the HTTP API on --addr (default from [server] addr).

Routes: POST /v1/compile, /v1/estimate, /v1/sweep, /v1/render;
GET /v1/runs, /v1/runs/{id}, /v1/schema, /healthz.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !cmd.Flags().Changed("addr") {
				addr = c.config().Server.Addr
			}

			runner, err := c.newRunner(ctx, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			c.Logger.Info("starting server",
				"addr", addr,
				"cache", c.config().Cache.Backend,
				"store", c.config().Store.Backend)
			return api.New(runner, st, c.Logger).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the result cache")
	return cmd
}
