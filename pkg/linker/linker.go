// Package linker replaces an entity's reference field with new file links.
package linker

import (
	"context"
	"fmt"

	"github.com/alm-toolkit/alm-linker/pkg/alm"
	"github.com/alm-toolkit/alm-linker/pkg/errors"
	"github.com/alm-toolkit/alm-linker/pkg/observability"
)

// Patcher is the client subset the linker needs.
type Patcher interface {
	ArchiveEntity(ctx context.Context, entityID string) error
	PatchReferenceField(ctx context.Context, entityID, fieldName string, refs []alm.FileRef) error
}

// ArchiveOutcome is the result of archiving one stale reference.
type ArchiveOutcome struct {
	ID  string
	Err error
}

// archiveFuture is one pending archive call.
type archiveFuture struct {
	id   string
	err  error
	done chan struct{}
}

func (f *archiveFuture) wait() ArchiveOutcome {
	<-f.done
	return ArchiveOutcome{ID: f.id, Err: f.err}
}

// Link archives the references currently on the field, then overwrites the
// field with newRefs in a single patch call.
//
// Archival is fanned out concurrently and joined before the patch; no
// single archive failure aborts the run. The patch failure is fatal: at
// that point the new files are uploaded but unlinked.
func Link(ctx context.Context, client Patcher, entity *alm.Entity, fieldName string, newRefs []alm.FileRef, log observability.Logger) error {
	if log == nil {
		log = observability.Nop()
	}

	prior := entity.Fields[fieldName].Value
	if len(prior) > 0 {
		log.Info("archiving stale references", observability.Int("count", len(prior)))
		for _, outcome := range ArchiveAll(ctx, client, prior) {
			if outcome.Err != nil {
				log.Warn("failed to archive stale reference",
					observability.String("id", outcome.ID),
					observability.Err(outcome.Err))
			}
		}
	}

	if err := client.PatchReferenceField(ctx, entity.ID, fieldName, newRefs); err != nil {
		return errors.LinkError(
			fmt.Sprintf("failed to update field %q on entity %s; %d uploaded file(s) are orphaned and need manual linking",
				fieldName, entity.ID, len(newRefs)),
			err)
	}

	log.Info("field updated",
		observability.String("entityID", entity.ID),
		observability.String("field", fieldName),
		observability.Int("references", len(newRefs)))
	return nil
}

// ArchiveAll archives every reference concurrently and waits for all
// outcomes. Outcomes are returned in input order.
func ArchiveAll(ctx context.Context, client Patcher, refs []alm.FileRef) []ArchiveOutcome {
	futures := make([]*archiveFuture, len(refs))
	for i, ref := range refs {
		f := &archiveFuture{id: ref.ID, done: make(chan struct{})}
		futures[i] = f
		go func(id string) {
			defer close(f.done)
			f.err = client.ArchiveEntity(ctx, id)
		}(ref.ID)
	}

	outcomes := make([]ArchiveOutcome, len(futures))
	for i, f := range futures {
		outcomes[i] = f.wait()
	}
	return outcomes
}
