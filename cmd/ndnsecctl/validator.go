package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ndnsec/pkg/helper/errors"
	"ndnsec/pkg/security/validatorconfig"
)

func newValidatorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validator",
		Short: "Validator-config commands",
	}
	cmd.AddCommand(newValidatorCheckCmd())
	return cmd
}

func newValidatorCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <config.yaml>",
		Short: "Load and compile a validator-config document, then report what it built",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := validatorconfig.Load(args[0])
			if err != nil {
				return err
			}

			_, store, stop, err := validatorconfig.Compile(f, nil)
			if err != nil {
				return errors.Wrap(err, "compile validator config %s", args[0])
			}
			defer stop()

			fmt.Printf("rules: %d\n", len(f.Rules))
			fmt.Printf("trust anchors configured: %d\n", len(f.TrustAnchors))
			fmt.Printf("trust anchor certificates loaded: %d\n", store.Len())
			return nil
		},
	}
}
