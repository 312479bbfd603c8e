// Package runner tests
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alm-toolkit/alm-linker/pkg/alm"
	"github.com/alm-toolkit/alm-linker/pkg/config"
	"github.com/alm-toolkit/alm-linker/pkg/event"
	linkererrors "github.com/alm-toolkit/alm-linker/pkg/errors"
)

// fakeClient implements the full Client surface in memory.
type fakeClient struct {
	searchResults []alm.EntitySummary
	entity        *alm.Entity

	changeSetIndex string
	changeSetErr   error
	uploadErr      error

	calls       []string
	uploaded    []string
	added       []string
	archived    []string
	patchedRefs []alm.FileRef
	patchField  string
}

func (f *fakeClient) SearchEntities(ctx context.Context, substring string) ([]alm.EntitySummary, error) {
	f.calls = append(f.calls, "search:"+substring)
	return f.searchResults, nil
}

func (f *fakeClient) GetEntity(ctx context.Context, id string) (*alm.Entity, error) {
	f.calls = append(f.calls, "get:"+id)
	if f.entity == nil {
		return nil, errors.New("no entity configured")
	}
	return f.entity, nil
}

func (f *fakeClient) GetChangeSetIndex(ctx context.Context, entityID string) (string, error) {
	f.calls = append(f.calls, "changeset:"+entityID)
	if f.changeSetErr != nil {
		return "", f.changeSetErr
	}
	return f.changeSetIndex, nil
}

func (f *fakeClient) UploadFile(ctx context.Context, localPath, remoteName, typeTitle string) (string, error) {
	f.calls = append(f.calls, "upload:"+remoteName)
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploaded = append(f.uploaded, localPath)
	return fmt.Sprintf("f%d", len(f.uploaded)), nil
}

func (f *fakeClient) AddToChangeSet(ctx context.Context, entityID, changeSetIndex string) error {
	f.calls = append(f.calls, "add:"+entityID)
	f.added = append(f.added, entityID)
	return nil
}

func (f *fakeClient) GetFileVersion(ctx context.Context, fileID string) *int {
	f.calls = append(f.calls, "version:"+fileID)
	v := 1
	return &v
}

func (f *fakeClient) ArchiveEntity(ctx context.Context, entityID string) error {
	f.calls = append(f.calls, "archive:"+entityID)
	f.archived = append(f.archived, entityID)
	return nil
}

func (f *fakeClient) PatchReferenceField(ctx context.Context, entityID, fieldName string, refs []alm.FileRef) error {
	f.calls = append(f.calls, "patch:"+fieldName)
	f.patchField = fieldName
	f.patchedRefs = refs
	return nil
}

func resolvableClient() *fakeClient {
	return &fakeClient{
		searchResults: []alm.EntitySummary{
			{ID: "e1", Title: "Change #42", TemplateID: "tpl-1"},
		},
		entity: &alm.Entity{
			ID:    "e1",
			Title: "Change #42",
			Fields: map[string]alm.Field{
				"Artifacts": {Type: alm.FieldTypeReference, Value: []alm.FileRef{{ID: "old1"}}},
			},
		},
		changeSetIndex: "cs-1",
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Token:         "tok",
		BaseURL:       "https://alm.example.com/api/",
		TemplateID:    "tpl-1",
		FileTypeTitle: "File",
		ArchiveFormat: "zip",
	}
}

func prEvent(workspace string) event.Context {
	return event.Context{PRNumber: 42, Repo: "acme/widget", Workspace: workspace}
}

func TestRunNoPullRequestIsNoOp(t *testing.T) {
	client := &fakeClient{}
	r := NewWithClient(testConfig(), event.Context{}, client, nil)

	if err := r.RunSnapshot(context.Background()); err != nil {
		t.Errorf("RunSnapshot() error = %v, want nil no-op", err)
	}
	if err := r.RunArtifacts(context.Background()); err != nil {
		t.Errorf("RunArtifacts() error = %v, want nil no-op", err)
	}
	if len(client.calls) != 0 {
		t.Errorf("client calls = %v, want none for a non-PR event", client.calls)
	}
}

func TestRunArtifactsEndToEnd(t *testing.T) {
	workspace := t.TempDir()
	for _, name := range []string{"a.xml", "b.xml"} {
		if err := os.WriteFile(filepath.Join(workspace, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	client := resolvableClient()
	cfg := testConfig()
	cfg.Patterns = []string{"*.xml"}

	r := NewWithClient(cfg, prEvent(workspace), client, nil)
	if err := r.RunArtifacts(context.Background()); err != nil {
		t.Fatalf("RunArtifacts() error = %v", err)
	}

	if len(client.uploaded) != 2 {
		t.Errorf("uploaded = %v, want 2 files", client.uploaded)
	}
	if len(client.added) != 2 {
		t.Errorf("changeset adds = %v, want both files added", client.added)
	}
	if len(client.archived) != 1 || client.archived[0] != "old1" {
		t.Errorf("archived = %v, want stale ref old1", client.archived)
	}
	if client.patchField != config.DefaultArtifactsField {
		t.Errorf("patched field = %s, want %s", client.patchField, config.DefaultArtifactsField)
	}
	if len(client.patchedRefs) != 2 {
		t.Errorf("patched refs = %+v, want 2 new refs", client.patchedRefs)
	}
	for _, ref := range client.patchedRefs {
		if ref.ID == "old1" {
			t.Error("patched refs contain the old reference; the field must be replaced, not appended")
		}
	}
}

func TestRunArtifactsNoMatchesIsNoOp(t *testing.T) {
	client := resolvableClient()
	cfg := testConfig()
	cfg.Patterns = []string{"*.xml"}

	r := NewWithClient(cfg, prEvent(t.TempDir()), client, nil)
	if err := r.RunArtifacts(context.Background()); err != nil {
		t.Fatalf("RunArtifacts() error = %v, want nil no-op", err)
	}

	for _, call := range client.calls {
		if strings.HasPrefix(call, "upload:") || strings.HasPrefix(call, "patch:") {
			t.Errorf("unexpected call %s for an empty batch", call)
		}
	}
}

func TestRunArtifactsAllUploadsFail(t *testing.T) {
	workspace := t.TempDir()
	if err := os.WriteFile(filepath.Join(workspace, "a.xml"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	client := resolvableClient()
	client.uploadErr = errors.New("storage full")
	cfg := testConfig()
	cfg.Patterns = []string{"*.xml"}

	r := NewWithClient(cfg, prEvent(workspace), client, nil)
	err := r.RunArtifacts(context.Background())
	if err == nil {
		t.Fatal("expected error when every file fails")
	}
	if !linkererrors.IsType(err, linkererrors.ErrUpload) {
		t.Errorf("error = %v, want ErrUpload", err)
	}
	for _, call := range client.calls {
		if strings.HasPrefix(call, "patch:") {
			t.Error("field must not be patched when no references were collected")
		}
	}
}

func TestRunArtifactsChangeSetLookupFailureIsTolerated(t *testing.T) {
	workspace := t.TempDir()
	if err := os.WriteFile(filepath.Join(workspace, "a.xml"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	client := resolvableClient()
	client.changeSetErr = errors.New("entity has no changeset")
	cfg := testConfig()
	cfg.Patterns = []string{"*.xml"}

	r := NewWithClient(cfg, prEvent(workspace), client, nil)
	if err := r.RunArtifacts(context.Background()); err != nil {
		t.Fatalf("RunArtifacts() error = %v, want run to proceed without changeset", err)
	}

	if len(client.added) != 0 {
		t.Errorf("changeset adds = %v, want none when lookup failed", client.added)
	}
	if len(client.patchedRefs) != 1 {
		t.Errorf("patched refs = %+v, want the uploaded file linked", client.patchedRefs)
	}
}

func TestRunArtifactsAmbiguousEntity(t *testing.T) {
	client := resolvableClient()
	client.searchResults = append(client.searchResults,
		alm.EntitySummary{ID: "e9", Title: "Dup #42", TemplateID: "tpl-1"})

	r := NewWithClient(testConfig(), prEvent(t.TempDir()), client, nil)
	err := r.RunArtifacts(context.Background())
	if err == nil {
		t.Fatal("expected error for ambiguous resolution")
	}
	if !linkererrors.IsType(err, linkererrors.ErrResolve) {
		t.Errorf("error = %v, want ErrResolve", err)
	}
	for _, call := range client.calls {
		if strings.HasPrefix(call, "upload:") {
			t.Error("nothing must be uploaded when resolution fails")
		}
	}
}

func TestRunSnapshotEndToEnd(t *testing.T) {
	workspace := t.TempDir()
	if err := os.WriteFile(filepath.Join(workspace, "main.go"), []byte("package main"), 0o644); err != nil {
		t.Fatal(err)
	}

	client := resolvableClient()
	client.entity.Fields = map[string]alm.Field{
		"Code Snapshot": {Type: alm.FieldTypeReference, Value: []alm.FileRef{{ID: "oldsnap"}}},
	}

	r := NewWithClient(testConfig(), prEvent(workspace), client, nil)
	if err := r.RunSnapshot(context.Background()); err != nil {
		t.Fatalf("RunSnapshot() error = %v", err)
	}

	if len(client.uploaded) != 1 {
		t.Fatalf("uploaded = %v, want exactly one archive", client.uploaded)
	}
	if !strings.HasSuffix(client.uploaded[0], ".zip") {
		t.Errorf("uploaded %s, want a .zip archive", client.uploaded[0])
	}
	if client.patchField != config.DefaultSnapshotField {
		t.Errorf("patched field = %s, want %s", client.patchField, config.DefaultSnapshotField)
	}
	if len(client.archived) != 1 || client.archived[0] != "oldsnap" {
		t.Errorf("archived = %v, want prior snapshot archived", client.archived)
	}
}

func TestRunSnapshotCustomFieldName(t *testing.T) {
	workspace := t.TempDir()
	if err := os.WriteFile(filepath.Join(workspace, "main.go"), []byte("package main"), 0o644); err != nil {
		t.Fatal(err)
	}

	client := resolvableClient()
	cfg := testConfig()
	cfg.FieldName = "Source Archive"

	r := NewWithClient(cfg, prEvent(workspace), client, nil)
	if err := r.RunSnapshot(context.Background()); err != nil {
		t.Fatalf("RunSnapshot() error = %v", err)
	}
	if client.patchField != "Source Archive" {
		t.Errorf("patched field = %s, want configured override", client.patchField)
	}
}
