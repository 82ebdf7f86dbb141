// The Licensed Work is (c) 2022 Sygma
// SPDX-License-Identifier: LGPL-3.0-only

package cli

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sprintertech/intent-engine/app"
	"github.com/sprintertech/intent-engine/config"
)

var (
	rootCMD = &cobra.Command{
		Use: "",
	}

	runCMD = &cobra.Command{
		Use:   "run",
		Short: "Run the intent engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run()
		},
	}
)

func init() {
	config.BindFlags(rootCMD)
	rootCMD.PersistentFlags().String("config-url", "", "URL of shared configuration")
	_ = viper.BindPFlag("config-url", rootCMD.PersistentFlags().Lookup("config-url"))
}

func Execute() {
	rootCMD.AddCommand(runCMD)
	if err := rootCMD.Execute(); err != nil {
		log.Fatal().Err(err).Msg("failed to execute root cmd")
	}
}
