package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pkordes/rideshare-importer/internal/domain"
	"github.com/pkordes/rideshare-importer/internal/messages"
	"github.com/pkordes/rideshare-importer/internal/service"
	"github.com/pkordes/rideshare-importer/internal/upload"
)

func newImportCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a RideShare JSON export file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			up, err := upload.Existing(file)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg, log, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			summary, err := a.imports.ImportUpload(cmd.Context(), up, progressPrinter(out, a.msgs))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s %d created, %d updated, %d skipped, %d failed.\n",
				a.msgs.AllDone, summary.Created, summary.Updated, summary.Skipped, summary.Failed)
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d trips failed", summary.Failed, summary.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "RideShare JSON export to import (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// progressPrinter writes one line per trip, like the import page does.
func progressPrinter(out io.Writer, msgs messages.Catalog) service.Reporter {
	return service.ReporterFunc(func(res domain.TripResult) {
		fmt.Fprintf(out, msgs.Importing, res.ExternalID)
		if res.Err != nil {
			fmt.Fprintf(out, " "+msgs.Failed+": %v", res.ExternalID, res.Err)
		}
		fmt.Fprintln(out)
	})
}
