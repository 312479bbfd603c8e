// Package resolver tests
package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/alm-toolkit/alm-linker/pkg/alm"
)

// fakeSearcher serves canned search results and entity details.
type fakeSearcher struct {
	results   []alm.EntitySummary
	searchErr error
	searches  int
}

func (f *fakeSearcher) SearchEntities(ctx context.Context, substring string) ([]alm.EntitySummary, error) {
	f.searches++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.results, nil
}

func (f *fakeSearcher) GetEntity(ctx context.Context, id string) (*alm.Entity, error) {
	for _, r := range f.results {
		if r.ID == id {
			return &alm.Entity{ID: r.ID, Title: r.Title, TemplateID: r.TemplateID}, nil
		}
	}
	return nil, errors.New("not found")
}

func TestResolveSingleMatch(t *testing.T) {
	client := &fakeSearcher{results: []alm.EntitySummary{
		{ID: "e1", Title: "Change #42", TemplateID: "tpl-1"},
		{ID: "e2", Title: "Other #42", TemplateID: "tpl-2"},
	}}

	entity, err := Resolve(context.Background(), client, 42, "tpl-1")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if entity.ID != "e1" {
		t.Errorf("entity.ID = %s, want e1", entity.ID)
	}
}

func TestResolveNoMatch(t *testing.T) {
	client := &fakeSearcher{results: []alm.EntitySummary{
		{ID: "e2", Title: "Other #42", TemplateID: "tpl-2"},
	}}

	_, err := Resolve(context.Background(), client, 42, "tpl-1")

	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error = %T (%v), want *NotFoundError", err, err)
	}
	if nf.PRNumber != 42 || nf.TemplateID != "tpl-1" {
		t.Errorf("NotFoundError = %+v, want PR 42 template tpl-1", nf)
	}
}

func TestResolveAmbiguousMatch(t *testing.T) {
	client := &fakeSearcher{results: []alm.EntitySummary{
		{ID: "e1", Title: "Change #42", TemplateID: "tpl-1"},
		{ID: "e3", Title: "Duplicate #42", TemplateID: "tpl-1"},
	}}

	_, err := Resolve(context.Background(), client, 42, "tpl-1")

	var amb *AmbiguousError
	if !errors.As(err, &amb) {
		t.Fatalf("error = %T (%v), want *AmbiguousError", err, err)
	}
	if len(amb.IDs) != 2 || amb.IDs[0] != "e1" || amb.IDs[1] != "e3" {
		t.Errorf("IDs = %v, want [e1 e3]", amb.IDs)
	}
}

func TestResolveSearchError(t *testing.T) {
	wantErr := errors.New("boom")
	client := &fakeSearcher{searchErr: wantErr}

	_, err := Resolve(context.Background(), client, 42, "tpl-1")
	if !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want wrapped search error", err)
	}
}

func TestResolveIdempotent(t *testing.T) {
	client := &fakeSearcher{results: []alm.EntitySummary{
		{ID: "e1", Title: "Change #7", TemplateID: "tpl-1"},
	}}

	first, err := Resolve(context.Background(), client, 7, "tpl-1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := Resolve(context.Background(), client, 7, "tpl-1")
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Errorf("resolver not idempotent: %s vs %s", first.ID, second.ID)
	}
	if client.searches != 2 {
		t.Errorf("searches = %d, want 2", client.searches)
	}
}
