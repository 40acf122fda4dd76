// cmd/reviewer/serve.go
package main

import (
	"github.com/Corphon/AICodeReviewer/internal/app"
	"github.com/spf13/cobra"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if servePort != "" {
			cfg.Port = servePort
		}

		application, err := app.New(cfg)
		if err != nil {
			return err
		}
		return application.Run()
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "Listen port (default: PORT or 5000)")
}
