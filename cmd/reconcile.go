package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sentaiment/report-cli/internal/reconcile"
	"github.com/sentaiment/report-cli/internal/store"
)

var (
	reconcileCompany string
	reconcileOut     string
	reconcilePersist bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile [fragment files or dirs...]",
	Short: "Merge upstream fragments into one canonical report document",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		fragments, err := loadFragments(args)
		if err != nil {
			return err
		}

		company := reconcileCompany
		if company == "" {
			company = cfg.Report.Company
		}
		r := reconcile.New(reconcile.WithCompany(company))
		doc := r.Reconcile(fragments)

		if reconcilePersist {
			st, err := store.Open(ctx, cfg.Store)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			run, err := st.CreateRun(ctx, doc.Company)
			if err != nil {
				return err
			}
			if err := st.CompleteRun(ctx, run.ID, doc); err != nil {
				return err
			}
			zap.L().Info("run persisted", zap.String("run_id", run.ID))
		}

		payload, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal document")
		}
		if reconcileOut == "" || reconcileOut == "-" {
			_, err = os.Stdout.Write(append(payload, '\n'))
			return err
		}
		if err := os.WriteFile(reconcileOut, payload, 0o644); err != nil {
			return eris.Wrapf(err, "write %s", reconcileOut)
		}
		zap.L().Info("document written", zap.String("path", reconcileOut))
		return nil
	},
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileCompany, "company", "", "explicit target company (skips inference)")
	reconcileCmd.Flags().StringVarP(&reconcileOut, "out", "o", "-", "output path for the document JSON")
	reconcileCmd.Flags().BoolVar(&reconcilePersist, "persist", false, "persist the run to the store")
	rootCmd.AddCommand(reconcileCmd)
}
