package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [rfp-id]",
	Short: "Extract requirements from the tender document and match them to products",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runApp(cmd, func(ctx context.Context, app *application) error {
			id, err := resolveRFPID(ctx, app.store, args)
			if err != nil {
				return err
			}

			res, err := app.pipeline.Analyze(ctx, id)
			if err != nil {
				return err
			}

			app.logger.Info("technical analysis complete",
				zap.Int("rfp_id", res.RFP.ID),
				zap.Int("items", res.Step.Initial),
				zap.Int("matched", res.Step.Matched),
				zap.Int("failed", res.Step.Failed),
			)
			return printJSON(res.RFP.Data)
		})
	},
}

var priceCmd = &cobra.Command{
	Use:   "price [rfp-id]",
	Short: "Calculate the commercial quote of an analyzed RFP",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runApp(cmd, func(ctx context.Context, app *application) error {
			id, err := resolveRFPID(ctx, app.store, args)
			if err != nil {
				return err
			}

			res, err := app.pipeline.Price(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(res.RFP.Data.Commercial)
		})
	},
}

var proposeCmd = &cobra.Command{
	Use:   "propose [rfp-id]",
	Short: "Render the proposal PDF and quote workbook of a priced RFP",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runApp(cmd, func(ctx context.Context, app *application) error {
			id, err := resolveRFPID(ctx, app.store, args)
			if err != nil {
				return err
			}

			res, err := app.pipeline.Propose(ctx, id)
			if err != nil {
				return err
			}

			app.logger.Info("proposal written",
				zap.String("dir", app.renderer.Dir()),
				zap.String("proposal", res.Files.Proposal),
				zap.String("quote", res.Files.Quote),
			)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd, priceCmd, proposeCmd)
}
