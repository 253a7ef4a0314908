package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "job-tracker"
)

type Config struct {
	Inputs        []string      `mapstructure:"input"`
	Filter        string        `mapstructure:"filter"`
	OutDir        string        `mapstructure:"out-dir"`
	History       string        `mapstructure:"history"`
	HistoryMode   string        `mapstructure:"history-mode"`
	BatchInterval time.Duration `mapstructure:"batch-interval"`
	Workers       int           `mapstructure:"workers"`
	DB            string        `mapstructure:"db"`
	MetricsFile   string        `mapstructure:"metrics-file"`
	SkipGates     []string      `mapstructure:"skip-gate"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "job-tracker filters, scores and deduplicates bioinformatics job postings collected by the fetchers",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("filter", "JOB_TRACKER_FILTER"); err != nil {
		log.Fatalf("binding JOB_TRACKER_FILTER environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is job-tracker.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// Every setting can come from flags, so a missing default config file is fine.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && cfgFile == "" {
			return
		}
		log.Fatal(err)
	}
}

// bindFlags binds the named flags of the invoked command to viper. Commands
// share keys such as out-dir, so binding happens in PreRunE, not init.
func bindFlags(cmd *cobra.Command, names ...string) error {
	for _, name := range names {
		if err := viper.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("binding flag %s: %w", name, err)
		}
	}
	return nil
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
