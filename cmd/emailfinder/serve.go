package main

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/optimode/emailfinder/internal/server"
)

func serveCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Long: `serve exposes POST /api/find-emails and GET /ping. Requests run
independently; each one opens and closes its own page session.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			finder, cfg, log, err := newFinder()
			if err != nil {
				return err
			}
			if err := finder.Err(); err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.Listen = listen
			}
			gin.SetMode(gin.ReleaseMode)
			return server.New(finder, cfg.Server, log).Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default server.listen)")
	return cmd
}
