package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofrs/uuid"

	"github.com/HybridzDynamics/yahmi-security-rover-sub003/pkg/globals"
)

// Artifact is one saved capture (image or audio clip) in the index.
type Artifact struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"` // "image" or "audio"
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
}

type artifactIndex struct {
	Artifacts []Artifact `json:"artifacts"`
}

// RecordArtifact appends a saved capture to the index so the status surface
// can enumerate it later. Index corruption is treated as an empty index
// rather than a hard failure.
func (m *Manager) RecordArtifact(kind, filePath string, size int64) (Artifact, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to generate artifact ID: %w", err)
	}

	artifact := Artifact{
		ID:        id.String(),
		Timestamp: m.clock(),
		Kind:      kind,
		Path:      filePath,
		Size:      size,
	}

	index := m.readArtifactIndex()
	index.Artifacts = append(index.Artifacts, artifact)

	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to marshal artifact index: %w", err)
	}
	if err := m.WriteFile(globals.ArtifactIndexFile, data); err != nil {
		return Artifact{}, err
	}
	return artifact, nil
}

// Artifacts returns the index sorted newest first.
func (m *Manager) Artifacts() []Artifact {
	index := m.readArtifactIndex()

	out := make([]Artifact, len(index.Artifacts))
	for i := range index.Artifacts {
		out[i] = index.Artifacts[len(index.Artifacts)-1-i]
	}
	return out
}

func (m *Manager) readArtifactIndex() artifactIndex {
	var index artifactIndex
	data, err := m.ReadFile(globals.ArtifactIndexFile)
	if err != nil {
		return index
	}
	json.Unmarshal(data, &index)
	return index
}
