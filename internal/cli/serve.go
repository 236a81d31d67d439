package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/callaudit/internal/server"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server",
	Long: `Serve runs the HTTP webhook that voice-agent platforms post call
transcripts to.

Endpoints:
  GET  /                   service status
  GET  /health             liveness
  POST /audit-call         audit one call payload, returns the verdict
  GET  /api/v1/verdicts    recent verdicts (?limit=N)

With --watch-rules the rule table file is reloaded on change; in-flight
requests finish with the previous table.

Example:
  callaudit serve --port 8000
  callaudit serve --rules rules.yaml --watch-rules`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()
	flags.String("host", "0.0.0.0", "listen host")
	flags.Int("port", 8000, "listen port")
	flags.Bool("watch-rules", false, "reload the --rules file when it changes")
	flags.String("relay-url", "", "forward every verdict to this URL")

	_ = viper.BindPFlag("server.host", flags.Lookup("host"))
	_ = viper.BindPFlag("server.port", flags.Lookup("port"))
	_ = viper.BindPFlag("rules.watch", flags.Lookup("watch-rules"))
	_ = viper.BindPFlag("relay.url", flags.Lookup("relay-url"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Rules.Watch && cfg.Rules.Path == "" {
		return fmt.Errorf("--watch-rules requires --rules")
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := []server.Option{
		server.WithStore(a.store),
		server.WithLogger(a.logger),
		server.WithVersion(Version),
	}
	if cfg.Rules.Watch {
		opts = append(opts, server.WithRuleWatch(cfg.Rules.Path))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(cfg.Server, a.pipeline, opts...).Start(ctx)
}
