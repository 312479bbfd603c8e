// Package resolver locates the unique ALM entity for a pull request.
package resolver

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/alm-toolkit/alm-linker/pkg/alm"
)

// Searcher is the client subset the resolver needs.
type Searcher interface {
	SearchEntities(ctx context.Context, substring string) ([]alm.EntitySummary, error)
	GetEntity(ctx context.Context, id string) (*alm.Entity, error)
}

// NotFoundError indicates no entity matched the pull request.
type NotFoundError struct {
	PRNumber   int
	TemplateID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no entity found for PR #%d with template %s", e.PRNumber, e.TemplateID)
}

// AmbiguousError indicates more than one entity matched. Linking to the
// wrong record is worse than not linking, so ambiguity is always fatal.
type AmbiguousError struct {
	PRNumber   int
	TemplateID string
	IDs        []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("found %d entities for PR #%d with template %s: %s",
		len(e.IDs), e.PRNumber, e.TemplateID, strings.Join(e.IDs, ", "))
}

// Resolve finds exactly one entity whose title contains "#<prNumber>" and
// whose template matches templateID. The search endpoint cannot filter by
// template server-side, so filtering happens here.
func Resolve(ctx context.Context, client Searcher, prNumber int, templateID string) (*alm.Entity, error) {
	substring := "#" + strconv.Itoa(prNumber)
	results, err := client.SearchEntities(ctx, substring)
	if err != nil {
		return nil, err
	}

	var matches []alm.EntitySummary
	for _, r := range results {
		if r.TemplateID == templateID {
			matches = append(matches, r)
		}
	}

	switch len(matches) {
	case 0:
		return nil, &NotFoundError{PRNumber: prNumber, TemplateID: templateID}
	case 1:
		return client.GetEntity(ctx, matches[0].ID)
	default:
		ids := make([]string, 0, len(matches))
		for _, m := range matches {
			ids = append(ids, m.ID)
		}
		return nil, &AmbiguousError{PRNumber: prNumber, TemplateID: templateID, IDs: ids}
	}
}
