package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"securities-search/search"
	"securities-search/store"
)

func newQueryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "query <prefix>...",
		Short: "Print the ranked securities matching each ticker prefix",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			st := store.New(newFetcher(cfg))

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout)
			defer cancel()
			if err := st.EnsureLoaded(ctx); err != nil {
				return err
			}
			return printMatches(cmd.OutOrStdout(), search.NewTrieEngine(st.Root), args, cfg.DisplayLimit)
		},
	}
}

// printMatches writes TICKER\tNAME\tEXCHANGE rows for each prefix, at most
// limit per prefix. Several prefixes get a header line each.
func printMatches(w io.Writer, engine search.SearchEngine, prefixes []string, limit int) error {
	for i, prefix := range prefixes {
		if len(prefixes) > 1 {
			if i > 0 {
				if _, err := fmt.Fprintln(w); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(w, "%s:\n", prefix); err != nil {
				return err
			}
		}

		matches := engine.Search(prefix)
		if len(matches) == 0 {
			if _, err := fmt.Fprintf(w, "no securities found for %q\n", prefix); err != nil {
				return err
			}
			continue
		}
		if limit > 0 && len(matches) > limit {
			matches = matches[:limit]
		}
		for _, security := range matches {
			if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", security.CanonicalTicker(), security.Name, security.PrimaryExchange); err != nil {
				return err
			}
		}
	}
	return nil
}
