package cli

import (
	"github.com/spf13/cobra"

	"github.com/gonglijing/alertfi/internal/app"
)

func newServeCommand(opts *globalOptions) *cobra.Command {
	var addr string
	var dbPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the administration server",
		Long: `Run the HTTP API, the WebSocket alert stream, the optional MQTT ingest
subscriber and the background summary and retention tasks.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.cfg
			if addr != "" {
				cfg.ListenAddr = addr
			}
			if dbPath != "" {
				cfg.DBPath = dbPath
			}
			log.Info("starting alertfi", "config", cfg.String())
			return app.Run(cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (overrides config)")
	return cmd
}
