// Command ndnsecctl is a small operator tool for the key/certificate/
// validator/dispatcher stack: generate keys, print certificates, check a
// validator-config document compiles, or run an in-process management
// dispatcher smoke test.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ndnsecctl",
	Short: "Inspect and exercise the ndnsec key, certificate and validator stack",
}

func init() {
	rootCmd.AddCommand(newKeygenCmd())
	rootCmd.AddCommand(newCertCmd())
	rootCmd.AddCommand(newValidatorCmd())
	rootCmd.AddCommand(newServeCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
