package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"securities-search/api"
	"securities-search/config"
	"securities-search/loader"
	"securities-search/logger"
	"securities-search/models"
	"securities-search/search"
	"securities-search/settings"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr, data string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the securities trie built from a CSV file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.cfg
			if cmd.Flags().Changed("addr") {
				cfg.Serve.Addr = addr
			}
			if cmd.Flags().Changed("data") {
				cfg.Serve.Data = data
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, func(a net.Addr) {
				fmt.Fprintf(cmd.ErrOrStderr(), "serving securities trie on %s\n", a)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&data, "data", "", "securities CSV file (default from config)")
	return cmd
}

// runServe builds the trie from cfg.Serve.Data and serves it until ctx is
// done. ready, if set, is called with the bound address.
func runServe(ctx context.Context, cfg config.Config, ready func(net.Addr)) error {
	log := logger.FromContext(ctx)

	securities, err := loader.LoadSecurities(cfg.Serve.Data)
	if err != nil {
		return fmt.Errorf("load securities: %w", err)
	}
	trie := loader.BuildTrie(securities)
	log.Info("securities trie built", "count", trie.Size, "source", cfg.Serve.Data)

	handler := api.NewHandler(search.NewTrieEngine(func() *models.TrieNode { return trie.Root }), trie)
	handler.Version = settings.VersionInformation.BuildVersion
	handler.BuildTime = time.Now().UTC().Format(time.RFC3339)

	ln, err := net.Listen("tcp", cfg.Serve.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Serve.Addr, err)
	}

	baseCtx := context.WithoutCancel(ctx)
	srv := &http.Server{
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(baseCtx, shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if ready != nil {
		ready(ln.Addr())
	}
	err = g.Wait()
	log.Info("server stopped")
	return err
}
