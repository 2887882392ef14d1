package main

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sentaiment/report-cli/internal/model"
	"github.com/sentaiment/report-cli/internal/reconcile"
	"github.com/sentaiment/report-cli/pkg/anthropic"
)

var (
	analyzeOut         string
	analyzeSystem      string
	analyzeConcurrency int
)

// analyzeCmd runs scenario-analysis prompts through Claude and collects the
// extracted JSON objects as fragments ready for reconciliation. The model
// calls are pure producers; concurrency here is plain scheduling around
// them, bounded by an errgroup limit and a shared rate limiter.
var analyzeCmd = &cobra.Command{
	Use:   "analyze [prompt files...]",
	Short: "Run analysis prompts through Claude and collect fragments",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Anthropic.Key == "" {
			return eris.New("analyze: anthropic.key not configured")
		}

		client := anthropic.NewClient(cfg.Anthropic.Key)
		limiter := rate.NewLimiter(rate.Limit(cfg.Anthropic.RequestsPerMin/60.0), 1)

		var system string
		if analyzeSystem != "" {
			data, err := os.ReadFile(analyzeSystem)
			if err != nil {
				return eris.Wrapf(err, "read %s", analyzeSystem)
			}
			system = string(data)
		}

		fragments := make([]model.Fragment, len(args))
		var mu sync.Mutex
		var totalUsage anthropic.TokenUsage

		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(analyzeConcurrency)
		for i, path := range args {
			g.Go(func() error {
				frag, usage, err := runPrompt(ctx, client, limiter, system, path)
				if err != nil {
					return err
				}
				mu.Lock()
				fragments[i] = frag
				totalUsage.Add(usage)
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		totalUsage.LogUsage(cfg.Anthropic.Model, "analyze")

		payload, err := json.MarshalIndent(fragments, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal fragments")
		}
		if analyzeOut == "" || analyzeOut == "-" {
			_, err = os.Stdout.Write(append(payload, '\n'))
			return err
		}
		if err := os.WriteFile(analyzeOut, payload, 0o644); err != nil {
			return eris.Wrapf(err, "write %s", analyzeOut)
		}
		zap.L().Info("fragments written",
			zap.String("path", analyzeOut),
			zap.Int("count", len(fragments)),
		)
		return nil
	},
}

// runPrompt executes one prompt file and extracts its fragment. A response
// that yields no JSON object becomes an empty fragment, not a failure.
func runPrompt(ctx context.Context, client anthropic.Client, limiter *rate.Limiter, system, path string) (model.Fragment, anthropic.TokenUsage, error) {
	prompt, err := os.ReadFile(path)
	if err != nil {
		return model.Fragment{}, anthropic.TokenUsage{}, eris.Wrapf(err, "read %s", path)
	}

	if err := limiter.Wait(ctx); err != nil {
		return model.Fragment{}, anthropic.TokenUsage{}, err
	}

	resp, err := client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     cfg.Anthropic.Model,
		MaxTokens: int64(cfg.Anthropic.MaxTokens),
		System:    system,
		Prompt:    string(prompt),
	})
	if err != nil {
		return model.Fragment{}, anthropic.TokenUsage{}, eris.Wrapf(err, "analyze %s", path)
	}

	obj, level := reconcile.ExtractObject(resp.Text)
	if obj == nil {
		zap.L().Warn("analyze: response contained no usable object",
			zap.String("prompt", path),
		)
		obj = map[string]any{}
	}
	zap.L().Debug("analyze: prompt complete",
		zap.String("prompt", path),
		zap.String("extraction", level.String()),
	)

	return model.Fragment{Branch: path, Data: obj}, resp.Usage, nil
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeOut, "out", "o", "-", "output path for the fragments JSON")
	analyzeCmd.Flags().StringVar(&analyzeSystem, "system", "", "path to a system prompt file")
	analyzeCmd.Flags().IntVar(&analyzeConcurrency, "concurrency", 3, "max concurrent prompts")
	rootCmd.AddCommand(analyzeCmd)
}
