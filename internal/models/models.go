// Copyright (c) 2025 AssistBridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package models answers local questions about the models directory: which requested
// model files are not downloaded yet and whether a folder holds an OpenVINO model.
package models

import (
	"os"
	"path/filepath"

	"assistbridge/cli/internal/errors"
)

// OpenVINO IR file names that must both be present in a converted model folder.
const (
	OpenVINOWeights  = "openvino_model.bin"
	OpenVINOTopology = "openvino_model.xml"
)

// Result is the answer to a missing-models query.
type Result struct {
	Missing []string `json:"missing_models"`
	Dir     string   `json:"models_dir_path"`
}

// Missing creates dir when absent and returns the requested names that have no
// entry in it, in request order without duplicates.
func Missing(dir string, requested []string) (Result, error) {
	res := Result{Dir: dir, Missing: []string{}}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return res, errors.Wrap(errors.IO, "create models dir "+dir, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return res, errors.Wrap(errors.IO, "list models dir "+dir, err)
	}
	present := make([]string, 0, len(entries))
	for _, e := range entries {
		present = append(present, e.Name())
	}
	res.Missing = MissingFrom(requested, present)
	return res, nil
}

// MissingFrom returns requested minus present, keeping request order and dropping duplicates.
func MissingFrom(requested, present []string) []string {
	have := make(map[string]struct{}, len(present))
	for _, p := range present {
		have[p] = struct{}{}
	}
	out := []string{}
	seen := make(map[string]struct{}, len(requested))
	for _, r := range requested {
		if _, ok := have[r]; ok {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// CheckOpenVINO reports whether dir contains both OpenVINO IR files.
func CheckOpenVINO(dir string) bool {
	return PathExists(filepath.Join(dir, OpenVINOWeights)) && PathExists(filepath.Join(dir, OpenVINOTopology))
}

// PathExists reports whether anything exists at path.
func PathExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
