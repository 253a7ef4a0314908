package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"github.com/spigell/bioinfo-job-tracker/internal/filtering"
	"github.com/spigell/bioinfo-job-tracker/internal/logger"
	"github.com/spigell/bioinfo-job-tracker/internal/output"
	"github.com/spigell/bioinfo-job-tracker/internal/utils"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptExit              = "exit"
	PromptReportByCompanies = "Report by companies"
	reviewLabelLimit        = 120
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Browse the kept postings of the last run, best score first",
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindFlags(cmd, "out-dir")
	},
	Run: func(cmd *cobra.Command, _ []string) {
		review(cmd)
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)

	reviewCmd.Flags().String("file", "", "filtered.jsonl to review (default is filtered.jsonl in the out dir)")
	reviewCmd.Flags().StringP("out-dir", "o", defaultOutDir, "directory with the run artifacts")
}

func review(cmd *cobra.Command) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		path = output.DefaultArtifacts(reviewOutDir()).Filtered
	}

	results, err := output.ReadResults(path)
	if err != nil {
		logger.Fatal("reading kept postings", zap.String("path", path), zap.Error(err))
	}
	if len(results) == 0 {
		logger.Info("exiting", zap.String("reason", "no kept postings"), zap.String("path", filepath.Clean(path)))
		return
	}
	filtering.SortByScore(results)

	logger.Info("current list of postings", zap.Int("count", len(results)))

	for {
		items := make([]string, 0, len(results)+2)
		for _, res := range results {
			items = append(items, reviewLabel(res))
		}
		items = append(items, PromptReportByCompanies, PromptExit)

		postingPrompt := promptui.Select{
			Label: "Choose a posting and press ENTER",
			Items: items,
			Size:  15,
		}

		idx, selected, err := postingPrompt.Run()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}

		switch selected {
		case PromptExit:
			return
		case PromptReportByCompanies:
			pretty, _ := json.MarshalIndent(reportByCompany(results), "", "  ")
			logger.Info(string(pretty), zap.Int("postings count", len(results)))
		default:
			logger.Info("posting", postingDetails(results[idx])...)
		}
	}
}

// reviewOutDir resolves out-dir from the flag, the config file or the default,
// in that order.
func reviewOutDir() string {
	if dir := viper.GetString("out-dir"); dir != "" {
		return dir
	}
	return defaultOutDir
}

func reviewLabel(res filtering.Result) string {
	label := fmt.Sprintf("%3d  %s / %s / %s", res.Score, res.Company, res.JobTitle, res.Location)
	return utils.TruncateForLog(label, reviewLabelLimit)
}

func postingDetails(res filtering.Result) []zap.Field {
	breakdown, _ := json.Marshal(res.ScoreBreakdown)
	return append(logger.PostingFields(res.Company, res.JobTitle, res.Source),
		zap.String("location", res.Location),
		zap.String("posting_date", res.PostingDate),
		zap.String("job_url", res.JobURL),
		zap.Int("score", res.Score),
		zap.Strings("stage1_pass_reasons", res.Stage1PassReasons),
		zap.String("score_breakdown", string(breakdown)),
	)
}

func reportByCompany(results []filtering.Result) map[string]int {
	report := make(map[string]int)
	for _, res := range results {
		report[res.Company]++
	}
	return report
}
