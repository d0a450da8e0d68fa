package main

import (
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"ndnsec/pkg/config"
	"ndnsec/pkg/face"
	"ndnsec/pkg/helper/errors"
	"ndnsec/pkg/helper/log"
	"ndnsec/pkg/mgmt"
	"ndnsec/pkg/mgmt/dispatcher"
	"ndnsec/pkg/metrics"
	"ndnsec/pkg/ndn"
	"ndnsec/pkg/security/keys"
)

func newServeCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Wire an in-memory face and management dispatcher, and block serving requests until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromFile(configFile)
			if err != nil {
				return errors.Wrap(err, "load configuration")
			}

			logger := log.NewLoggerWithLevel(log.ParseLevel(cfg.LogLevel))
			runID := uuid.New().String()
			logger = logger.WithField("run_id", runID)

			var reg *metrics.Registry
			if cfg.Metrics.Enabled {
				reg = metrics.NewRegistry()
			}

			keyParams, err := cfg.Identity.KeyParams()
			if err != nil {
				return err
			}
			priv, err := keys.GeneratePrivateKey(keyParams)
			if err != nil {
				return errors.Wrap(err, "generate identity key")
			}
			signing := mgmt.SigningInfo{
				Key:      priv,
				CertName: ndn.ParseName(cfg.Identity.Name).Append(ndn.NewGenericComponent([]byte("self-signed"))),
			}

			f := face.NewInMemoryFace()
			d := dispatcher.NewWithCapacity(f, logger, reg, cfg.Dispatcher.Capacity())

			topPrefix, err := cfg.Dispatcher.TopPrefixName()
			if err != nil {
				return err
			}
			if err := d.AddTopPrefix(topPrefix, true, signing); err != nil {
				return errors.Wrap(err, "activate top prefix %s", topPrefix)
			}

			logger.WithField("top_prefix", topPrefix.String()).Info("management dispatcher listening")

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			<-ctx.Done()
			logger.Info("shutting down")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Configuration file path")
	return cmd
}
