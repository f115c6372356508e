// rheactorctl is the operator CLI: key generation, token inspection and
// account bootstrap against the live journal.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rheactorctl",
	Short: "Operator tooling for the rheactor account service",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
