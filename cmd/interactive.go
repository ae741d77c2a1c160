package cmd

import (
	"fmt"

	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"

	"securities-search/autocomplete"
	"securities-search/logger"
	"securities-search/search"
	"securities-search/store"
	"securities-search/tui"
)

func newInteractiveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "interactive",
		Aliases: []string{"i"},
		Short:   "Search securities in an interactive search box",
		Long: "Starts a type-ahead search box. Results update after a short pause in\n" +
			"typing; use up/down to move, enter to pick and esc to close the list.\n" +
			"The picked ticker is printed on exit.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.cfg
			ctx := cmd.Context()
			log := logger.FromContext(ctx)

			st := store.New(newFetcher(cfg))
			sched := &tui.LoopScheduler{}
			ctrl := autocomplete.New(search.NewTrieEngine(st.Root),
				autocomplete.WithScheduler(sched),
				autocomplete.WithDebounce(cfg.Debounce),
				autocomplete.WithLimit(cfg.DisplayLimit),
				autocomplete.WithOnSelect(func(ticker string) {
					log.V(1).Info("security selected", "ticker", ticker)
				}),
			)
			defer ctrl.Close()

			model := tui.New(ctx, ctrl, st)
			p := tea.NewProgram(model, tea.WithContext(ctx))
			sched.Attach(p.Send)

			if _, err := p.Run(); err != nil {
				return fmt.Errorf("run search box: %w", err)
			}
			if ticker := model.Selected(); ticker != "" {
				fmt.Fprintln(cmd.OutOrStdout(), ticker)
			}
			return nil
		},
	}
}
