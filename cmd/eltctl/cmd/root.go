package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "eltctl",
	Short: "Command-line client for the eltorch orchestrator",
	Long: `eltctl talks to a running eltorch orchestrator over its REST API.

It creates job definitions, triggers manual runs, and inspects the status
of runs and the jobs that produced them.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default is $HOME/.eltctl.yaml)")
	rootCmd.PersistentFlags().String("url", "http://localhost:8080", "orchestrator API base URL")
	rootCmd.PersistentFlags().StringP("token", "t", "", "API bearer token")

	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))
	viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
}

func initConfig() {
	configFile, _ := rootCmd.PersistentFlags().GetString("config")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".eltctl")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("ELTCTL")
	viper.AutomaticEnv()

	viper.ReadInConfig()
}

func clientFromFlags(cmd *cobra.Command) *Client {
	return NewClient(viper.GetString("url"), viper.GetString("token"))
}
