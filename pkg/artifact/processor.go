// Package artifact uploads build artifacts and collects file references.
package artifact

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/alm-toolkit/alm-linker/pkg/alm"
	"github.com/alm-toolkit/alm-linker/pkg/observability"
)

// Uploader is the client subset the processor needs.
type Uploader interface {
	UploadFile(ctx context.Context, localPath, remoteName, typeTitle string) (string, error)
	AddToChangeSet(ctx context.Context, entityID, changeSetIndex string) error
	GetFileVersion(ctx context.Context, fileID string) *int
}

// Result accumulates the outcome of one batch.
type Result struct {
	// Refs holds one reference per fully processed file, in input order.
	Refs []alm.FileRef

	// Failures counts files that did not produce a reference.
	Failures int
}

// Processor uploads files one by one, isolating per-file failures so one
// bad file never aborts the batch.
type Processor struct {
	client         Uploader
	log            observability.Logger
	prNumber       int
	typeTitle      string
	changeSetIndex string
	runID          string
}

// NewProcessor creates a processor for one run. An empty changeSetIndex
// skips the add-to-changeset step entirely.
func NewProcessor(client Uploader, log observability.Logger, prNumber int, typeTitle, changeSetIndex string) *Processor {
	if log == nil {
		log = observability.Nop()
	}
	return &Processor{
		client:         client,
		log:            log,
		prNumber:       prNumber,
		typeTitle:      typeTitle,
		changeSetIndex: changeSetIndex,
		runID:          uuid.NewString()[:8],
	}
}

// RemoteName derives the unique remote name for the file at the given
// batch position. Names must not collide across files in the same run.
func (p *Processor) RemoteName(localPath string, index int) string {
	return fmt.Sprintf("pr%d-%s-%d-%s", p.prNumber, p.runID, index, filepath.Base(localPath))
}

// Process uploads each file, adds it to the changeset when one is known,
// and fetches its version best-effort. Errors are caught per file and
// counted; they never escape the loop.
func (p *Processor) Process(ctx context.Context, files []string) Result {
	var result Result
	for i, file := range files {
		ref, err := p.processOne(ctx, file, i)
		if err != nil {
			p.log.Error("file processing failed",
				observability.String("file", file),
				observability.Err(err))
			result.Failures++
			continue
		}
		result.Refs = append(result.Refs, ref)
	}
	return result
}

// processOne runs the upload → changeset-add → version-fetch sequence for
// a single file.
func (p *Processor) processOne(ctx context.Context, file string, index int) (alm.FileRef, error) {
	remoteName := p.RemoteName(file, index)

	fileID, err := p.client.UploadFile(ctx, file, remoteName, p.typeTitle)
	if err != nil {
		return alm.FileRef{}, fmt.Errorf("upload of %s failed: %w", remoteName, err)
	}
	p.log.Info("uploaded file",
		observability.String("file", file),
		observability.String("remoteName", remoteName),
		observability.String("fileID", fileID))

	if p.changeSetIndex != "" {
		if err := p.client.AddToChangeSet(ctx, fileID, p.changeSetIndex); err != nil {
			return alm.FileRef{}, fmt.Errorf("adding %s to changeset %s failed: %w", fileID, p.changeSetIndex, err)
		}
	}

	// Version lookup is best-effort; nil links to the latest version.
	version := p.client.GetFileVersion(ctx, fileID)

	return alm.FileRef{ID: fileID, Version: version}, nil
}
