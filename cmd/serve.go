package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/bidwin/internal/inbox"
	"github.com/spigell/bidwin/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Run: func(cmd *cobra.Command, _ []string) {
		watch, _ := cmd.Flags().GetBool("watch")

		runApp(cmd, func(ctx context.Context, app *application) error {
			if watch {
				watcher, err := inbox.NewWatcher(app.config.Inbox.Dir, app.pipeline, app.logger.Named("inbox"))
				if err != nil {
					return err
				}
				go func() {
					if err := watcher.Run(ctx); err != nil {
						app.logger.Error("inbox watcher stopped", zap.Error(err))
					}
				}()
			}

			srv := server.New(server.Config{
				Addr:      app.config.Server.Addr,
				UploadDir: app.config.Server.UploadDir,
			}, app.pipeline, app.store, app.renderer, app.logger.Named("http"))

			return srv.Run(ctx)
		})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Register tender documents dropped into the inbox directory",
	Run: func(cmd *cobra.Command, _ []string) {
		runApp(cmd, func(ctx context.Context, app *application) error {
			watcher, err := inbox.NewWatcher(app.config.Inbox.Dir, app.pipeline, app.logger.Named("inbox"))
			if err != nil {
				return err
			}
			return watcher.Run(ctx)
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, watchCmd)

	serveCmd.Flags().Bool("watch", false, "also watch the inbox directory for new tender documents")
}
