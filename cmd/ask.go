package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask rfp-id question...",
	Short: "Ask a question about an RFP and its analysis",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runApp(cmd, func(ctx context.Context, app *application) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid rfp id %q", args[0])
			}

			answer, err := app.pipeline.Ask(ctx, id, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}

			fmt.Println(answer)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}
