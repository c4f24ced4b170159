package usecase

import (
	"errors"
	"testing"

	"recordpanel/internal/domain"
)

func TestResultFinalizerPublishesArtifact(t *testing.T) {
	t.Parallel()

	artifacts := &fakeArtifacts{}
	f := newResultFinalizer(artifacts)

	result, err := f.Finalize([]byte("webm-bytes"), "video/webm")
	if err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if result.Size != len("webm-bytes") {
		t.Fatalf("unexpected size: %d", result.Size)
	}
	if result.MimeType != "video/webm" {
		t.Fatalf("unexpected mime type: %q", result.MimeType)
	}
	if result.URL == "" || result.ID == "" {
		t.Fatalf("expected published url and id, got %+v", result)
	}
	if string(artifacts.published[result.ID]) != "webm-bytes" {
		t.Fatalf("artifact was not published")
	}
}

func TestResultFinalizerRejectsEmptyArtifact(t *testing.T) {
	t.Parallel()

	artifacts := &fakeArtifacts{}
	f := newResultFinalizer(artifacts)

	_, err := f.Finalize(nil, "video/webm")
	if !errors.Is(err, domain.ErrEmptyRecording) {
		t.Fatalf("expected ErrEmptyRecording, got %v", err)
	}
	if len(artifacts.published) != 0 {
		t.Fatalf("empty artifact must not be published")
	}
}

func TestResultFinalizerPublishFailure(t *testing.T) {
	t.Parallel()

	f := newResultFinalizer(&fakeArtifacts{err: errors.New("disk full")})

	_, err := f.Finalize([]byte("x"), "video/webm")
	if err == nil || domain.ErrorCodeFor(err) != domain.ErrorCodeArtifact {
		t.Fatalf("expected publish error, got %v", err)
	}
}
