package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFragments_SingleObject(t *testing.T) {
	frags, err := decodeFragments([]byte(`{"scenarios": []}`), "branch-a")
	require.NoError(t, err)
	require.Len(t, frags, 1)
	assert.Equal(t, "branch-a", frags[0].Branch)
	assert.Contains(t, frags[0].Data, "scenarios")
}

func TestDecodeFragments_Array(t *testing.T) {
	frags, err := decodeFragments([]byte(`[{"a": 1}, {"b": 2}, "skipped"]`), "batch")
	require.NoError(t, err)
	require.Len(t, frags, 2)
	assert.Contains(t, frags[0].Data, "a")
	assert.Contains(t, frags[1].Data, "b")
}

func TestDecodeFragments_HostEnvelopeUnwrapped(t *testing.T) {
	frags, err := decodeFragments([]byte(`[{"json": {"scenarios": []}, "pairedItem": 0}]`), "host")
	require.NoError(t, err)
	require.Len(t, frags, 1)
	assert.Contains(t, frags[0].Data, "scenarios")
	assert.NotContains(t, frags[0].Data, "json")
}

func TestDecodeFragments_EnvelopeKeptWhenSiblingsPresent(t *testing.T) {
	// A fragment that coincidentally has a "json" key among real payload keys
	// must not be unwrapped.
	frags, err := decodeFragments([]byte(`{"json": {"x": 1}, "scenarios": [], "citations": []}`), "b")
	require.NoError(t, err)
	require.Len(t, frags, 1)
	assert.Contains(t, frags[0].Data, "scenarios")
	assert.Contains(t, frags[0].Data, "json")
}

func TestDecodeFragments_Invalid(t *testing.T) {
	_, err := decodeFragments([]byte(`not json`), "b")
	assert.Error(t, err)

	_, err = decodeFragments([]byte(`"a bare string"`), "b")
	assert.Error(t, err)
}

func TestLoadFragments_FilesAndDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "one.json"), []byte(`{"scenarios": []}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "two.json"), []byte(`[{"citations": []}, {"results": []}]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte(`nope`), 0o644))

	single := filepath.Join(t.TempDir(), "single.json")
	require.NoError(t, os.WriteFile(single, []byte(`{"company": "Acme"}`), 0o644))

	frags, err := loadFragments([]string{dir, single})
	require.NoError(t, err)
	assert.Len(t, frags, 4)
}

func TestLoadFragments_MissingPath(t *testing.T) {
	_, err := loadFragments([]string{filepath.Join(t.TempDir(), "absent.json")})
	assert.Error(t, err)
}
