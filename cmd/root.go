package cmd

import (
	"fmt"
	"os"

	"github.com/Manu343726/npldbgworker/cmd/worker"
	"github.com/Manu343726/npldbgworker/internal/config"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "npldbgworker",
	Short: "Debug-event orchestration worker",
	Long: `npldbgworker drives one debuggee (native or scripted) through a
single poll loop, normalizing its raw events into a common front-end
callback surface, and exposes the break/continue/step/evaluate command
set front-ends use to control it.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.npldbgworker.yaml)")
	RootCmd.AddCommand(worker.AttachCmd, worker.LaunchCmd, worker.SessionCmd)
	cobra.OnInitialize(initConfig)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".npldbgworker")
	}

	viper.SetEnvPrefix("npldbgworker")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	profile, err := config.Load(afero.NewOsFs(), viper.ConfigFileUsed())
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		profile = config.DefaultProfile()
	}
	worker.SetDefaultProfile(profile)
}
