package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentaiment/report-cli/internal/model"
	"github.com/sentaiment/report-cli/internal/reconcile"
	"github.com/sentaiment/report-cli/internal/render"
	"github.com/sentaiment/report-cli/internal/store"
)

// reportRecordingStore captures the SaveReport arguments while delegating to
// the wrapped store.
type reportRecordingStore struct {
	store.Store
	savedRunID string
	filename   string
	html       string
}

func (s *reportRecordingStore) SaveReport(ctx context.Context, runID, filename, html string) error {
	s.savedRunID = runID
	s.filename = filename
	s.html = html
	return s.Store.SaveReport(ctx, runID, filename, html)
}

func renderedTestReport(t *testing.T) (*model.ReportDocument, render.Output) {
	t.Helper()
	doc := reconcile.New(reconcile.WithCompany("Acme Hotels")).Reconcile([]model.Fragment{
		{Branch: "scenarios", Data: map[string]any{
			"scenarios": []any{
				map[string]any{"scenario_id": 1, "title": "Persisted Report Scenario"},
			},
		}},
	})
	out, err := render.Render(doc)
	require.NoError(t, err)
	return doc, out
}

func TestPersistReport_SavesRunAndArtifact(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "render-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	rec := &reportRecordingStore{Store: st}

	doc, out := renderedTestReport(t)
	ctx := context.Background()

	runID, err := persistReport(ctx, rec, doc, out)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	run, err := st.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	require.NotNil(t, run.Document)
	assert.Equal(t, "Acme Hotels", run.Document.Company)

	assert.Equal(t, runID, rec.savedRunID)
	assert.Equal(t, out.Filename, rec.filename)
	assert.Equal(t, out.HTML, rec.html)
}

func TestPersistReport_MarksRunFailedOnError(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "render-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	doc, out := renderedTestReport(t)
	ctx := context.Background()

	_, err = persistReport(ctx, completeRunFailingStore{st}, doc, out)
	require.Error(t, err)

	failed, err := st.ListRuns(ctx, store.RunFilter{Status: model.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].Error, "document write rejected")
}
