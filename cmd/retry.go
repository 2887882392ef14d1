package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sentaiment/report-cli/internal/model"
	"github.com/sentaiment/report-cli/internal/resilience"
)

var retryOut string

var retryCmd = &cobra.Command{
	Use:   "retry [items file]",
	Short: "Evaluate a batch of failed items against the retry policy table",
	Long:  "Reads a JSON array of items (with optional error descriptors), decides per item whether to reschedule it with a backoff delay, and emits the decisions. Items with unrecognized or exhausted errors pass through unchanged.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var data []byte
		var err error
		if len(args) == 0 || args[0] == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return eris.Wrap(err, "read items")
		}

		var items []model.RetryItem
		if err := json.Unmarshal(data, &items); err != nil {
			return eris.Wrap(err, "parse items")
		}

		table := resilience.PolicyTableFromConfig(
			cfg.Retry.BaseDelayMs,
			cfg.Retry.MaxDelayMs,
			cfg.Retry.JitterCeilingMs,
			cfg.Retry.GlobalCeiling,
		)
		decisions := resilience.NewEngine(table).ProcessBatch(items)

		retries, exhausted := 0, 0
		for _, d := range decisions {
			switch d.Kind {
			case model.DecisionRetry:
				retries++
			case model.DecisionExhausted:
				exhausted++
			}
		}
		zap.L().Info("retry batch evaluated",
			zap.Int("items", len(items)),
			zap.Int("retries", retries),
			zap.Int("exhausted", exhausted),
		)

		payload, err := json.MarshalIndent(decisions, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal decisions")
		}
		if retryOut == "" || retryOut == "-" {
			_, err = os.Stdout.Write(append(payload, '\n'))
			return err
		}
		return os.WriteFile(retryOut, payload, 0o644)
	},
}

func init() {
	retryCmd.Flags().StringVarP(&retryOut, "out", "o", "-", "output path for the decisions JSON")
	rootCmd.AddCommand(retryCmd)
}
