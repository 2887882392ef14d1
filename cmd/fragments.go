package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sentaiment/report-cli/internal/model"
)

// loadFragments reads upstream fragments from the given paths. Each path may
// be a JSON file or a directory of .json files; "-" reads stdin. A file may
// hold a single fragment object or an array of fragments; the workflow
// host's {"json": ...} item envelope is unwrapped when present.
func loadFragments(paths []string) ([]model.Fragment, error) {
	var fragments []model.Fragment

	for _, path := range paths {
		if path == "-" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return nil, eris.Wrap(err, "read stdin")
			}
			frags, err := decodeFragments(data, "stdin")
			if err != nil {
				return nil, err
			}
			fragments = append(fragments, frags...)
			continue
		}

		info, err := os.Stat(path)
		if err != nil {
			return nil, eris.Wrapf(err, "stat %s", path)
		}

		files := []string{path}
		if info.IsDir() {
			entries, err := os.ReadDir(path)
			if err != nil {
				return nil, eris.Wrapf(err, "read dir %s", path)
			}
			files = files[:0]
			for _, e := range entries {
				if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
					files = append(files, filepath.Join(path, e.Name()))
				}
			}
		}

		for _, file := range files {
			data, err := os.ReadFile(file)
			if err != nil {
				return nil, eris.Wrapf(err, "read %s", file)
			}
			frags, err := decodeFragments(data, filepath.Base(file))
			if err != nil {
				return nil, err
			}
			fragments = append(fragments, frags...)
		}
	}

	zap.L().Info("fragments loaded",
		zap.Int("count", len(fragments)),
		zap.Strings("paths", paths),
	)
	return fragments, nil
}

// decodeFragments parses one JSON payload into fragments.
func decodeFragments(data []byte, branch string) ([]model.Fragment, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrapf(err, "parse %s", branch)
	}

	switch v := raw.(type) {
	case []any:
		var out []model.Fragment
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, model.Fragment{Branch: branch, Data: unwrapEnvelope(m)})
			}
		}
		return out, nil
	case map[string]any:
		return []model.Fragment{{Branch: branch, Data: unwrapEnvelope(v)}}, nil
	default:
		return nil, eris.Errorf("parse %s: expected object or array", branch)
	}
}

// unwrapEnvelope strips the workflow host's {"json": {...}} item wrapper.
func unwrapEnvelope(m map[string]any) map[string]any {
	if inner, ok := m["json"].(map[string]any); ok && len(m) <= 2 {
		return inner
	}
	return m
}
