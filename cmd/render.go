package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sentaiment/report-cli/internal/model"
	"github.com/sentaiment/report-cli/internal/notify"
	"github.com/sentaiment/report-cli/internal/reconcile"
	"github.com/sentaiment/report-cli/internal/render"
	"github.com/sentaiment/report-cli/internal/store"
)

var (
	renderCompany  string
	renderOutDir   string
	renderDocument string
	renderNotify   bool
	renderPersist  bool
)

var renderCmd = &cobra.Command{
	Use:   "render [fragment files or dirs...]",
	Short: "Render the static HTML report",
	Long:  "Reconciles fragments (or loads an already-reconciled document with --document) and writes the static HTML report.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var doc *model.ReportDocument
		switch {
		case renderDocument != "":
			data, err := os.ReadFile(renderDocument)
			if err != nil {
				return eris.Wrapf(err, "read %s", renderDocument)
			}
			doc = &model.ReportDocument{}
			if err := json.Unmarshal(data, doc); err != nil {
				return eris.Wrapf(err, "parse %s", renderDocument)
			}
		case len(args) > 0:
			fragments, err := loadFragments(args)
			if err != nil {
				return err
			}
			company := renderCompany
			if company == "" {
				company = cfg.Report.Company
			}
			doc = reconcile.New(reconcile.WithCompany(company)).Reconcile(fragments)
		default:
			return eris.New("render: provide fragment paths or --document")
		}

		out, err := render.Render(doc)
		if err != nil {
			return err
		}

		dir := renderOutDir
		if dir == "" {
			dir = cfg.Report.OutputDir
		}
		path := filepath.Join(dir, out.Filename)
		if err := os.WriteFile(path, []byte(out.HTML), 0o644); err != nil {
			return eris.Wrapf(err, "write %s", path)
		}
		zap.L().Info("report rendered",
			zap.String("path", path),
			zap.String("company", doc.Company),
		)

		if renderPersist {
			st, err := store.Open(ctx, cfg.Store)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			runID, err := persistReport(ctx, st, doc, out)
			if err != nil {
				return err
			}
			zap.L().Info("report persisted", zap.String("run_id", runID))
		}

		if renderNotify {
			n := notify.New(cfg.Slack)
			if err := n.Send(ctx, n.ReportMessage(doc, out.Filename)); err != nil {
				return err
			}
		}
		return nil
	},
}

// persistReport records a completed run and its rendered artifact, returning
// the run id. The run is marked failed if the document or report row cannot
// be written.
func persistReport(ctx context.Context, st store.Store, doc *model.ReportDocument, out render.Output) (string, error) {
	run, err := st.CreateRun(ctx, doc.Company)
	if err != nil {
		return "", err
	}
	if err := st.CompleteRun(ctx, run.ID, doc); err != nil {
		if ferr := st.FailRun(ctx, run.ID, err.Error()); ferr != nil {
			zap.L().Error("fail run failed", zap.String("run_id", run.ID), zap.Error(ferr))
		}
		return "", err
	}
	if err := st.SaveReport(ctx, run.ID, out.Filename, out.HTML); err != nil {
		if ferr := st.FailRun(ctx, run.ID, err.Error()); ferr != nil {
			zap.L().Error("fail run failed", zap.String("run_id", run.ID), zap.Error(ferr))
		}
		return "", err
	}
	return run.ID, nil
}

func init() {
	renderCmd.Flags().StringVar(&renderCompany, "company", "", "explicit target company (skips inference)")
	renderCmd.Flags().StringVar(&renderOutDir, "out-dir", "", "directory for the HTML file (default from config)")
	renderCmd.Flags().StringVar(&renderDocument, "document", "", "path to an already-reconciled document JSON")
	renderCmd.Flags().BoolVar(&renderNotify, "notify", false, "send a Slack notification after rendering")
	renderCmd.Flags().BoolVar(&renderPersist, "persist", false, "persist the run and rendered report to the store")
	rootCmd.AddCommand(renderCmd)
}
