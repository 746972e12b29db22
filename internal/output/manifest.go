package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Manifest is the document writer contract: the ordered pages to copy and
// the bookmark tree to attach to the assembled PDF.
type Manifest struct {
	RunID     string           `json:"run_id,omitempty"`
	Revisions []Revision       `json:"revisions"`
	PageCount int              `json:"page_count"`
	Pages     []PageEntry      `json:"pages"`
	Outline   []OutlineNode    `json:"outline"`
	Sections  []SectionSummary `json:"sections"`
}

func (p *Plan) Manifest() Manifest {
	return Manifest{
		RunID:     p.RunID,
		Revisions: p.Revisions,
		PageCount: len(p.Pages),
		Pages:     p.Pages,
		Outline:   p.Tree(),
		Sections:  p.Sections,
	}
}

// WriteManifest writes the plan's manifest as indented JSON, creating the
// parent directory if needed. The file is replaced atomically.
func WriteManifest(path string, p *Plan) error {
	b, err := json.MarshalIndent(p.Manifest(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".manifest-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (Manifest, error) {
	var m Manifest
	b, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return m, nil
}
