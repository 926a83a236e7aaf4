package consistency

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Artifact file names inside a run directory
const (
	ArtifactRun         = "run.json"
	ArtifactAggregation = "aggregation.json"
	ArtifactCoverage    = "coverage.json"
	ArtifactFindings    = "findings.json"
	ArtifactPenalty     = "penalty.json"
	ArtifactSummary     = "summary.md"
	ArtifactMeta        = "meta.json"
)

// artifactSpec declares one expected artifact of a run directory
type artifactSpec struct {
	Name     string
	Required bool
}

// artifactSpecs is the contract a run directory is audited against.
// meta.json is deliberately absent: the checker writes it, so its own
// presence is never a finding.
var artifactSpecs = []artifactSpec{
	{Name: ArtifactRun, Required: true},
	{Name: ArtifactAggregation, Required: true},
	{Name: ArtifactCoverage, Required: true},
	{Name: ArtifactFindings, Required: true},
	{Name: ArtifactPenalty, Required: true},
	{Name: ArtifactSummary, Required: false},
}

// artifactFile is one artifact as read from disk
type artifactFile struct {
	Name    string
	Path    string
	Exists  bool
	ModTime time.Time
	Data    []byte
	Err     error
}

// readArtifact stats and reads one artifact file. A missing file is not
// an error here: presence is judged by the checker against the spec.
func readArtifact(dir, name string) artifactFile {
	path := filepath.Join(dir, name)
	af := artifactFile{Name: name, Path: path}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return af
		}
		af.Err = fmt.Errorf("stat %s: %w", name, err)
		return af
	}

	af.Exists = true
	af.ModTime = info.ModTime()

	data, err := os.ReadFile(path)
	if err != nil {
		af.Err = fmt.Errorf("read %s: %w", name, err)
		return af
	}
	af.Data = data
	return af
}

// decodeArtifact unmarshals an artifact into the given target
func decodeArtifact(af artifactFile, target any) error {
	if err := json.Unmarshal(af.Data, target); err != nil {
		return fmt.Errorf("decode %s: %w", af.Name, err)
	}
	return nil
}
