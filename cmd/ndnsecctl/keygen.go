package main

import (
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"ndnsec/pkg/helper/errors"
	"ndnsec/pkg/security/keys"
)

func newKeygenCmd() *cobra.Command {
	var keyType string
	var keySize int
	var pkcs8 bool

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a private key and print its DER encoding (base64) to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := keyParamsFor(keyType, keySize)
			if err != nil {
				return err
			}

			priv, err := keys.GeneratePrivateKey(params)
			if err != nil {
				return errors.Wrap(err, "generate %s key", keyType)
			}

			var out string
			if pkcs8 {
				der, err := priv.SavePkcs8()
				if err != nil {
					return errors.Wrap(err, "encode PKCS#8")
				}
				out = base64.StdEncoding.EncodeToString(der)
			} else {
				b64, err := priv.SavePkcs1Base64()
				if err != nil {
					return errors.Wrap(err, "encode PKCS#1")
				}
				out = string(b64)
			}

			fmt.Println(out)
			return nil
		},
	}

	cmd.Flags().StringVar(&keyType, "type", "ec", "key type: rsa, ec, or hmac (hmac keys have no PKCS#1/PKCS#8 encoding, so hmac fails)")
	cmd.Flags().IntVar(&keySize, "size", 0, "key size in bits (defaults per type: rsa=2048, ec=256, hmac=256)")
	cmd.Flags().BoolVar(&pkcs8, "pkcs8", false, "encode as PKCS#8 instead of PKCS#1")

	return cmd
}

func keyParamsFor(keyType string, keySize int) (keys.KeyParams, error) {
	switch keyType {
	case "rsa":
		if keySize == 0 {
			keySize = 2048
		}
		return keys.RSAParams(keySize), nil
	case "ec":
		if keySize == 0 {
			keySize = 256
		}
		return keys.ECParams(keySize), nil
	case "hmac":
		if keySize == 0 {
			keySize = 256
		}
		return keys.HMACParams(keySize), nil
	default:
		return keys.KeyParams{}, errors.InvalidInputf("unknown key type %q", keyType)
	}
}
