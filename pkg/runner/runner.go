// Package runner orchestrates one linking run per CI event.
package runner

import (
	"context"
	"fmt"
	"os"

	"github.com/alm-toolkit/alm-linker/pkg/alm"
	"github.com/alm-toolkit/alm-linker/pkg/artifact"
	"github.com/alm-toolkit/alm-linker/pkg/config"
	"github.com/alm-toolkit/alm-linker/pkg/errors"
	"github.com/alm-toolkit/alm-linker/pkg/event"
	"github.com/alm-toolkit/alm-linker/pkg/linker"
	"github.com/alm-toolkit/alm-linker/pkg/observability"
	"github.com/alm-toolkit/alm-linker/pkg/resolver"
)

// Client is the full platform surface one run needs.
type Client interface {
	resolver.Searcher
	artifact.Uploader
	linker.Patcher
	GetChangeSetIndex(ctx context.Context, entityID string) (string, error)
}

// Runner executes one run. Runs are single-shot: no retries, every
// external call is attempted exactly once.
type Runner struct {
	cfg    *config.Config
	evt    event.Context
	client Client
	log    observability.Logger
}

// New creates a runner talking to the real platform API.
func New(cfg *config.Config, evt event.Context, log observability.Logger) *Runner {
	return &Runner{
		cfg:    cfg,
		evt:    evt,
		client: alm.NewClient(cfg.BaseURL, cfg.Token, log),
		log:    log,
	}
}

// NewWithClient creates a runner with an explicit client. Used by tests.
func NewWithClient(cfg *config.Config, evt event.Context, client Client, log observability.Logger) *Runner {
	if log == nil {
		log = observability.Nop()
	}
	return &Runner{cfg: cfg, evt: evt, client: client, log: log}
}

// RunSnapshot archives the whole workspace into one file and links it to
// the entity resolved for the current pull request.
func (r *Runner) RunSnapshot(ctx context.Context) error {
	if !r.evt.IsPullRequest() {
		r.log.Info("not a pull request event, nothing to do")
		return nil
	}

	entity, err := r.resolve(ctx)
	if err != nil {
		return err
	}

	scratch, err := os.MkdirTemp("", "alm-linker-*")
	if err != nil {
		return errors.UploadError("failed to create scratch directory", err)
	}
	defer os.RemoveAll(scratch)

	name := artifact.SnapshotName(r.evt.Repo, r.evt.PRNumber)
	r.log.Info("creating workspace snapshot",
		observability.String("workspace", r.evt.Workspace),
		observability.String("format", r.cfg.ArchiveFormat))
	path, err := artifact.Snapshot(r.evt.Workspace, scratch, r.cfg.ArchiveFormat, name)
	if err != nil {
		return errors.UploadError("failed to create workspace snapshot", err)
	}

	return r.processAndLink(ctx, entity, []string{path}, r.fieldName(config.DefaultSnapshotField))
}

// RunArtifacts discovers files matching the configured glob patterns and
// links them to the entity resolved for the current pull request.
func (r *Runner) RunArtifacts(ctx context.Context) error {
	if !r.evt.IsPullRequest() {
		r.log.Info("not a pull request event, nothing to do")
		return nil
	}

	entity, err := r.resolve(ctx)
	if err != nil {
		return err
	}

	files, err := artifact.Discover(r.evt.Workspace, r.cfg.Patterns)
	if err != nil {
		return errors.UploadError("artifact discovery failed", err)
	}
	if len(files) == 0 {
		r.log.Info("no artifacts matched the configured patterns, nothing to do")
		return nil
	}
	r.log.Info("discovered artifacts", observability.Int("count", len(files)))

	return r.processAndLink(ctx, entity, files, r.fieldName(config.DefaultArtifactsField))
}

// resolve finds the unique target entity for the pull request.
func (r *Runner) resolve(ctx context.Context) (*alm.Entity, error) {
	r.log.Info("resolving target entity",
		observability.Int("pr", r.evt.PRNumber),
		observability.String("templateID", r.cfg.TemplateID))
	entity, err := resolver.Resolve(ctx, r.client, r.evt.PRNumber, r.cfg.TemplateID)
	if err != nil {
		return nil, errors.ResolveError("could not determine target entity", err)
	}
	r.log.Info("resolved target entity",
		observability.String("entityID", entity.ID),
		observability.String("title", entity.Title))
	return entity, nil
}

// processAndLink uploads the files and replaces the target field with the
// collected references.
func (r *Runner) processAndLink(ctx context.Context, entity *alm.Entity, files []string, fieldName string) error {
	// Changeset lookup failure only disables the add-to-changeset step;
	// uploads and linking proceed without it.
	csIndex, err := r.client.GetChangeSetIndex(ctx, entity.ID)
	if err != nil {
		r.log.Warn("no changeset available, skipping changeset association",
			observability.Err(err))
		csIndex = ""
	}

	proc := artifact.NewProcessor(r.client, r.log, r.evt.PRNumber, r.cfg.FileTypeTitle, csIndex)
	result := proc.Process(ctx, files)

	if result.Failures > 0 {
		r.log.Warn(fmt.Sprintf("%d of %d file(s) failed", result.Failures, len(files)))
	}
	if len(result.Refs) == 0 {
		return errors.UploadError(
			fmt.Sprintf("all %d file(s) failed to process, nothing to link", len(files)), nil)
	}

	if err := linker.Link(ctx, r.client, entity, fieldName, result.Refs, r.log); err != nil {
		return err
	}

	r.log.Info("run completed",
		observability.Int("linked", len(result.Refs)),
		observability.Int("failed", result.Failures))
	return nil
}

// fieldName returns the configured field name or the per-action default.
func (r *Runner) fieldName(def string) string {
	if r.cfg.FieldName != "" {
		return r.cfg.FieldName
	}
	return def
}
