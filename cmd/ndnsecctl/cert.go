package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ndnsec/pkg/helper/errors"
	"ndnsec/pkg/ndn"
	"ndnsec/pkg/security/cert"
)

func newCertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cert",
		Short: "Certificate inspection commands",
	}
	cmd.AddCommand(newCertPrintCmd())
	return cmd
}

func newCertPrintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "print <file>",
		Short: "Decode a certificate Data packet and print its fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrap(err, "read certificate file %s", args[0])
			}

			codec := ndn.NewNativeCodec()
			data, err := codec.DecodeData(raw)
			if err != nil {
				return errors.Wrap(err, "decode certificate Data")
			}

			crt, err := cert.FromData(*data)
			if err != nil {
				return errors.Wrap(err, "parse certificate")
			}

			fmt.Print(crt.Print())
			return nil
		},
	}
}
