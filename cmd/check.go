package cmd

import (
	"log"
	"os"
	"sort"

	"github.com/spigell/bioinfo-job-tracker/internal/filtering"
	"github.com/spigell/bioinfo-job-tracker/internal/history"
	"github.com/spigell/bioinfo-job-tracker/internal/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate filter rules and report which gates are active",
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindFlags(cmd, "filter", "history")
	},
	Run: func(cmd *cobra.Command, _ []string) {
		check(cmd)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringP("filter", "f", "", "filter rules file (YAML or JSON)")
	checkCmd.Flags().Bool("dump", false, "print the normalized rules as YAML")
	checkCmd.Flags().String("history", "", "history CSV to check for duplicated identities")
}

func check(cmd *cobra.Command) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	path := viper.GetString("filter")

	cfg, err := loadFilter(path, logger)
	if err != nil {
		logger.Fatal("loading filter rules", zap.Error(err))
	}

	for _, status := range filtering.New(cfg).Describe() {
		fields := []zap.Field{
			zap.String("name", status.Name),
			zap.Bool("enabled", status.Enabled),
		}
		if status.Reason != "" {
			fields = append(fields, zap.String("reason", status.Reason))
		}
		keys := make([]string, 0, len(status.Details))
		for k := range status.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fields = append(fields, zap.String(k, status.Details[k]))
		}
		logger.Info("gate", fields...)
	}

	if historyPath := viper.GetString("history"); historyPath != "" {
		hist, err := history.Load(historyPath)
		if err != nil {
			logger.Fatal("loading history", zap.String("path", historyPath), zap.Error(err))
		}
		if err := hist.Check(); err != nil {
			logger.Fatal("history is corrupted", zap.String("path", historyPath), zap.Error(err))
		}
		logger.Info("history is consistent", zap.String("path", historyPath), zap.Int("records", hist.Len()))
	}

	if dump, _ := cmd.Flags().GetBool("dump"); dump {
		var normalized filtering.Config
		if cfg != nil {
			normalized = cfg.Normalize()
		}

		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(normalized); err != nil {
			logger.Fatal("dumping filter rules", zap.Error(err))
		}
		_ = enc.Close()
	}
}
