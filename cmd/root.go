// Package cmd implements the secsearch command line.
package cmd

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"

	"securities-search/config"
	"securities-search/credentials"
	"securities-search/loader"
	"securities-search/logger"
	"securities-search/settings"
)

// rootOptions holds the persistent flags and the resolved configuration
// shared by all subcommands.
type rootOptions struct {
	configFile string
	apiURL     string
	logLevel   int8
	debounce   time.Duration
	limit      int

	cfg config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   settings.CliBinaryName,
		Short: "Type-ahead search over a securities prefix trie",
		Long: "secsearch loads the serialized securities trie once and answers ticker\n" +
			"prefix queries from memory. Use 'serve' to publish a trie built from CSV,\n" +
			"'query' for one-shot lookups and 'interactive' for the search box.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(opts, cmd.Flags())
			if err != nil {
				return err
			}
			opts.cfg = cfg

			out, err := logOutput(cfg, cmd.Name())
			if err != nil {
				return err
			}
			lgr := logger.Get(cfg.LogLevel, logger.WithOutput(out))
			lgr = logger.WithValues(lgr, logger.RootCommandKey, settings.CliBinaryName, logger.SubCommandKey, cmd.Name())
			cmd.SetContext(logger.WithLogger(cmd.Context(), lgr))
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "path to a YAML config file")
	pf.StringVar(&opts.apiURL, "api-url", "", "base URL of the securities API (default from config)")
	pf.Int8Var(&opts.logLevel, "log-level", 0, "zap log level; negative values enable debug output")
	pf.DurationVar(&opts.debounce, "debounce", 0, "quiet period before a search is issued (default from config)")
	pf.IntVar(&opts.limit, "limit", 0, "maximum number of results shown (default from config)")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newQueryCmd(opts),
		newInteractiveCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

// resolveConfig loads the config file and applies explicitly set flags on
// top of it.
func resolveConfig(opts *rootOptions, flags *pflag.FlagSet) (config.Config, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return cfg, err
	}
	if flags.Changed("api-url") {
		cfg.APIURL = opts.apiURL
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if flags.Changed("debounce") {
		cfg.Debounce = opts.debounce
	}
	if flags.Changed("limit") {
		cfg.DisplayLimit = opts.limit
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// logOutput picks the log destination for the named subcommand. The search
// box draws on the terminal, so it logs only when log_file is set.
func logOutput(cfg config.Config, command string) (zapcore.WriteSyncer, error) {
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		return zapcore.Lock(f), nil
	}
	if command == "interactive" {
		return zapcore.AddSync(io.Discard), nil
	}
	return zapcore.Lock(os.Stderr), nil
}

// newCredentials returns the bearer token source for cfg: the token_file
// contents when set, else the token_env variable.
func newCredentials(cfg config.Config) credentials.Provider {
	if cfg.TokenFile == "" {
		return credentials.NewEnvProvider()
	}
	path := cfg.TokenFile
	return credentials.NewFuncProvider(func(string) (string, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read token file: %w", err)
		}
		token := strings.TrimSpace(string(data))
		if token == "" {
			return "", fmt.Errorf("%w: %s", credentials.ErrNotFound, path)
		}
		return token, nil
	})
}

// newFetcher builds the trie fetcher described by cfg.
func newFetcher(cfg config.Config) *loader.HTTPFetcher {
	return loader.NewHTTPFetcher(cfg.APIURL,
		loader.WithPath(cfg.TriePath),
		loader.WithCacheBust(cfg.CacheBust),
		loader.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
		loader.WithCredentials(newCredentials(cfg), cfg.TokenEnv),
		loader.WithMinInterval(cfg.FetchRate),
		loader.WithMaxDepth(cfg.MaxDepth),
	)
}

func Execute() error {
	return newRootCmd().Execute()
}
