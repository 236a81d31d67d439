package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/callaudit/internal/model"
)

// Version is set at build time via -ldflags
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "callaudit",
	Short: "CallAudit - compliance and conduct auditing for voice-agent calls",
	Long: `CallAudit audits call transcripts produced by AI voice agents.

Each transcript gets one verdict tier:
  CRITICAL_FAIL    the agent claimed to be human
  FAIL_BIAS        biased language
  FAIL_HOSTILE     hostile sentiment
  WARN_RISK        risky sales or compliance language
  PASS_LINGUISTIC  clean, with cultural/linguistic markers noted
  PASS             nothing fired

Findings are keyword matches and lexical sentiment. They flag calls for
human review; they are not a judgement of intent.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "callaudit %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.callaudit/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.String("rules", "", "rule table YAML (default: built-in rules)")
	flags.String("sentiment", "lexicon", "sentiment scorer (lexicon, openai, anthropic, ollama)")
	flags.String("model", "", "LLM model for the sentiment scorer")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "json", "log format (json, console)")

	_ = viper.BindPFlag("output.verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("rules.path", flags.Lookup("rules"))
	_ = viper.BindPFlag("sentiment.provider", flags.Lookup("sentiment"))
	_ = viper.BindPFlag("sentiment.model", flags.Lookup("model"))
	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("log.format", flags.Lookup("log-format"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(model.HomeDir())
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// CALLAUDIT_SERVER_PORT overrides server.port
	viper.SetEnvPrefix("CALLAUDIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := registerDefaults(viper.GetViper(), model.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error registering defaults: %v\n", err)
	}

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// registerDefaults makes every config key known to viper so env overrides
// apply during Unmarshal
func registerDefaults(v *viper.Viper, cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}

	var walk func(prefix string, node map[string]any)
	walk = func(prefix string, node map[string]any) {
		for k, val := range node {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if child, ok := val.(map[string]any); ok {
				walk(key, child)
				continue
			}
			v.SetDefault(key, val)
		}
	}
	walk("", tree)

	// Fields hidden from YAML output
	v.SetDefault("sentiment.api_key", "")
	v.SetDefault("http.http_proxy", "")
	v.SetDefault("http.https_proxy", "")
	v.SetDefault("http.no_proxy", "")
	v.SetDefault("sentiment.base_url", "")
	v.SetDefault("relay.url", "")
	return nil
}

// loadConfig resolves the effective configuration: flags > env > file > defaults
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyProviderEnv(cfg)
	return cfg, nil
}

// applyProviderEnv fills LLM credentials from the providers' own variables
func applyProviderEnv(cfg *model.Config) {
	s := &cfg.Sentiment
	switch strings.ToLower(s.Provider) {
	case "openai":
		if s.APIKey == "" {
			s.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	case "anthropic", "claude":
		if s.APIKey == "" {
			s.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	case "ollama":
		if s.BaseURL == "" {
			s.BaseURL = os.Getenv("OLLAMA_BASE_URL")
		}
	}
}

// configPath returns the default config file location
func configPath() string {
	return filepath.Join(model.HomeDir(), "config.yaml")
}
