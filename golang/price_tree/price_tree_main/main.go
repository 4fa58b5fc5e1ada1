package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	v          = newViper()
	cfg        *Config
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "price_tree",
	Short: "Censored market price trees",
	Long:  "Partitions censored auction records into segments with distinct market price distributions.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := Load(v, configFile)
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

//bindFlag ties a flag of cmd to a viper key, flags win over file and environment.
func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "yaml config file (default ./price_tree.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "debug, info, warn or error")
	if err := v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(simulateCmd, trainCmd, predictCmd, graphCmd, printCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
