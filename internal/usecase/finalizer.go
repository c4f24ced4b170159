package usecase

import (
	"fmt"

	"recordpanel/internal/domain"
	"recordpanel/internal/ports"
)

type resultFinalizer struct {
	artifacts ports.ArtifactStore
}

func newResultFinalizer(artifacts ports.ArtifactStore) resultFinalizer {
	return resultFinalizer{artifacts: artifacts}
}

// Finalize publishes the artifact and builds the immutable result.
func (f resultFinalizer) Finalize(artifact []byte, mimeType string) (domain.RecordingResult, error) {
	if len(artifact) == 0 {
		return domain.RecordingResult{}, domain.ErrEmptyRecording
	}

	id, url, err := f.artifacts.Publish(artifact, mimeType)
	if err != nil {
		return domain.RecordingResult{}, fmt.Errorf("%w: %w", domain.ErrArtifactPublish, err)
	}

	return domain.RecordingResult{
		ID:       id,
		Artifact: artifact,
		URL:      url,
		MimeType: mimeType,
		Size:     len(artifact),
	}, nil
}
