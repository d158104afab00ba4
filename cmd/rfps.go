package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spigell/bidwin/internal/pipeline"
)

var rfpsCmd = &cobra.Command{
	Use:   "rfps",
	Short: "List tracked RFPs",
	Run: func(cmd *cobra.Command, _ []string) {
		runApp(cmd, func(ctx context.Context, app *application) error {
			rfps, err := app.store.ListRFPs(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tCLIENT\tSTATUS\tMATCHED\tDEADLINE")
			for _, rfp := range rfps {
				matched := "-"
				if rfp.Data != nil && rfp.Data.LineItems != nil {
					matched = fmt.Sprintf("%d/%d", rfp.Data.MatchedCount(), len(rfp.Data.LineItems))
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", rfp.ID, rfp.Title, rfp.ClientName, rfp.Status, matched, rfp.Deadline)
			}
			return w.Flush()
		})
	},
}

var registerCmd = &cobra.Command{
	Use:   "register file",
	Short: "Track a tender document as a new RFP",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		title, _ := cmd.Flags().GetString("title")
		client, _ := cmd.Flags().GetString("client")
		deadline, _ := cmd.Flags().GetString("deadline")

		runApp(cmd, func(ctx context.Context, app *application) error {
			rfp, created, err := app.pipeline.Register(ctx, pipeline.Registration{
				Path:       args[0],
				Title:      title,
				ClientName: client,
				Deadline:   deadline,
			})
			if err != nil {
				return err
			}

			if !created {
				fmt.Printf("already tracked as rfp %d (%s)\n", rfp.ID, rfp.Status)
				return nil
			}
			fmt.Printf("registered rfp %d\n", rfp.ID)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(rfpsCmd, registerCmd)

	registerCmd.Flags().String("title", "", "rfp title (default is the file name)")
	registerCmd.Flags().String("client", "", "client name")
	registerCmd.Flags().String("deadline", "", "submission deadline")
}
