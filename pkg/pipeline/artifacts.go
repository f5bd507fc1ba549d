package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sieve-kg/sieve/pkg/common"
)

const (
	GraphArtifact      = "graph.json"
	RejectionsArtifact = "rejections.json"
	TrustArtifact      = "trust_score.json"
)

// MarshalArtifacts renders the three run artifacts. Rejections marshal as
// an array even when empty so consumers never see null.
func MarshalArtifacts(result *RunResult) (map[string][]byte, error) {
	rejections := result.Rejections
	if rejections == nil {
		rejections = []common.RejectedFact{}
	}

	artifacts := make(map[string][]byte, 3)
	for name, payload := range map[string]any{
		GraphArtifact:      result.Graph,
		RejectionsArtifact: rejections,
		TrustArtifact:      result.Trust,
	} {
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", name, err)
		}
		artifacts[name] = append(data, '\n')
	}
	return artifacts, nil
}

// WriteArtifacts writes graph.json, rejections.json and trust_score.json to
// outputDir. All payloads are marshaled before anything touches disk, and
// each file lands via rename, so a failed run does not leave a partial
// artifact set of half-written files.
func WriteArtifacts(result *RunResult, outputDir string) error {
	artifacts, err := MarshalArtifacts(result)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for name, data := range artifacts {
		target := filepath.Join(outputDir, name)
		tmp := target + ".tmp"
		if err := os.WriteFile(tmp, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		if err := os.Rename(tmp, target); err != nil {
			return fmt.Errorf("failed to finalize %s: %w", name, err)
		}
	}
	return nil
}
