// cmd/contract-qa/ask.go
package main

import (
	"fmt"
	"strings"

	"contract-qa/internal/contractqa"

	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	var (
		sessionID    string
		quickAction  string
		summarizeAll bool
		showSources  bool
	)

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask one question against the stored contracts",
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" && quickAction == "" && !summarizeAll {
				return fmt.Errorf("a question, --quick or --summarize-all is required (quick actions: %s)",
					strings.Join(contractqa.QuickActionNames(), ", "))
			}

			ctx := cmd.Context()
			app, zapLog, err := setup(ctx)
			if err != nil {
				return err
			}
			defer zapLog.Sync()
			defer app.Close()

			if err := app.Service.Restore(ctx); err != nil {
				return err
			}

			var resp *contractqa.TurnResponse
			switch {
			case summarizeAll:
				resp, err = app.Service.SummarizeAll(ctx)
			case quickAction != "":
				resp, err = app.Service.QuickAction(ctx, quickAction)
			default:
				if sessionID == "" {
					sessionID = contractqa.NewSessionID()
				}
				resp, err = app.Service.Ask(ctx, sessionID, question)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "[%s] %s\n", resp.Decision, resp.Answer)
			if showSources && resp.Retrieval != nil {
				fmt.Fprintln(out, "\nSources:")
				for _, p := range resp.Retrieval.Passages {
					fmt.Fprintf(out, "  %.3f %s\n", p.Score, p.Annotation())
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id (default: a new session)")
	cmd.Flags().StringVar(&quickAction, "quick", "", "run a quick action instead of a question")
	cmd.Flags().BoolVar(&summarizeAll, "summarize-all", false, "summarize a sample of all stored contracts")
	cmd.Flags().BoolVar(&showSources, "sources", false, "print the retrieved passages' provenance")
	return cmd
}
