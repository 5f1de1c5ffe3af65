package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "connectord",
		Short: "Connection mode resolver for the embedded livechat widget",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	root.AddCommand(serveCmd())
	root.AddCommand(resolveCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
