package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"PayGate/internal/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "paygate",
		Short:   "PayGate - mobile money payment backend",
		Version: server.Version,
		RunE:    runServe,
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(signCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
