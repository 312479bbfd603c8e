// Package event extracts the CI event context driving a run.
//
// Business logic never reads environment variables directly; the context is
// built once at startup and passed in, so tests can use synthetic contexts.
package event

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/alm-toolkit/alm-linker/pkg/errors"
)

// Context is the immutable CI event context for one run.
type Context struct {
	// PRNumber is the pull request number, or 0 when the triggering event
	// is not a pull request.
	PRNumber int

	// Repo is the repository in owner/name form.
	Repo string

	// Workspace is the checked-out working directory.
	Workspace string

	// SHA is the head commit of the pull request.
	SHA string

	// Ref is the triggering git ref.
	Ref string
}

// IsPullRequest reports whether the run was triggered by a pull request.
func (c Context) IsPullRequest() bool {
	return c.PRNumber > 0
}

// eventPayload is the subset of the GitHub event payload we read.
type eventPayload struct {
	PullRequest struct {
		Number int `json:"number"`
	} `json:"pull_request"`
	Number int `json:"number"`
}

// FromEnv builds the run context from CI environment variables.
//
// A missing pull-request context is not an error: the returned Context
// reports IsPullRequest() == false and the caller exits as a no-op.
func FromEnv() (Context, error) {
	ctx := Context{
		Repo:      os.Getenv("GITHUB_REPOSITORY"),
		Workspace: os.Getenv("GITHUB_WORKSPACE"),
		SHA:       os.Getenv("GITHUB_SHA"),
		Ref:       os.Getenv("GITHUB_REF"),
	}
	if ctx.Workspace == "" {
		ctx.Workspace = "."
	}

	pr, err := prNumberFromEnv()
	if err != nil {
		return Context{}, err
	}
	ctx.PRNumber = pr

	return ctx, nil
}

// prNumberFromEnv resolves the pull request number from the event payload,
// falling back to PR_NUMBER for non-GitHub runners. Returns 0 when the
// event is not a pull request.
func prNumberFromEnv() (int, error) {
	name := os.Getenv("GITHUB_EVENT_NAME")
	if name == "pull_request" || name == "pull_request_target" {
		path := os.Getenv("GITHUB_EVENT_PATH")
		if path == "" {
			return 0, errors.EventError("GITHUB_EVENT_PATH is not set for a pull_request event", nil)
		}
		return prNumberFromPayload(path)
	}

	// Fallback for runners that export the number directly.
	if val := os.Getenv("PR_NUMBER"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return 0, errors.EventError(fmt.Sprintf("invalid PR_NUMBER: %s", val), err)
		}
		return n, nil
	}

	return 0, nil
}

// prNumberFromPayload parses the pull request number out of an event
// payload file.
func prNumberFromPayload(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.EventError(fmt.Sprintf("failed to read event payload: %s", path), err)
	}

	var payload eventPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return 0, errors.EventError("failed to parse event payload", err)
	}

	if payload.PullRequest.Number > 0 {
		return payload.PullRequest.Number, nil
	}
	if payload.Number > 0 {
		return payload.Number, nil
	}

	return 0, errors.EventError("event payload has no pull request number", nil)
}
