// cmd/contract-qa/ingest.go
package main

import (
	"encoding/json"
	"os"

	"contract-qa/internal/ingest"

	"github.com/spf13/cobra"
)

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Build the passage store from files, or from the documents directory when none are given",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, zapLog, err := setup(ctx)
			if err != nil {
				return err
			}
			defer zapLog.Sync()
			defer app.Close()

			var report *ingest.Report
			if len(args) == 0 {
				report, err = app.Service.Rebuild(ctx)
			} else {
				report, err = app.Service.IngestFiles(ctx, args)
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]interface{}{
				"files":    report.Files,
				"passages": app.Store.Count(),
			})
		},
	}
}
