package alm

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/alm-toolkit/alm-linker/pkg/observability"
)

// APIError is the normalized failure of one platform API call.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

// Error returns the error message
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed (status %d): %s", e.Op, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
}

// Unwrap returns the underlying cause
func (e *APIError) Unwrap() error {
	return e.Err
}

// Client calls the ALM platform API. All requests use bearer-token
// authentication; every call is attempted exactly once, no retries.
type Client struct {
	token   string
	baseURL string
	client  *http.Client
	log     observability.Logger
}

// NewClient creates a platform client. The base URL is normalized to end
// with "/". No client-side timeout is set: uploads stream whole archives,
// so body transfer must stay unbounded and only the transport's defaults
// apply.
func NewClient(baseURL, token string, log observability.Logger) *Client {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if log == nil {
		log = observability.Nop()
	}
	return &Client{
		token:   token,
		baseURL: baseURL,
		log:     log,
		client:  &http.Client{},
	}
}

// newRequest builds a request with auth headers applied.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	req.Header.Set("User-Agent", "alm-linker/1.0")
	return req, nil
}

// SearchEntities searches entities whose title contains the given substring.
// The search endpoint cannot filter by template; callers filter locally.
func (c *Client) SearchEntities(ctx context.Context, substring string) ([]EntitySummary, error) {
	path := fmt.Sprintf("entities?title=%s", url.QueryEscape(substring))
	req, err := c.newRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, &APIError{Op: "search entities", Message: "failed to create request", Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &APIError{Op: "search entities", Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &APIError{Op: "search entities", StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	var results []searchEntity
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, &APIError{Op: "search entities", Message: "response is not an entity array", Err: err}
	}

	out := make([]EntitySummary, 0, len(results))
	for _, r := range results {
		out = append(out, EntitySummary{
			ID:         r.ID,
			Title:      r.Title,
			TemplateID: r.SourceInfo.Template.ID,
		})
	}
	return out, nil
}

// GetEntity fetches an entity with its current field values.
func (c *Client) GetEntity(ctx context.Context, id string) (*Entity, error) {
	detail, err := c.getEntityDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Entity{
		ID:         detail.ID,
		Title:      detail.Title,
		TemplateID: detail.SourceInfo.Template.ID,
		Fields:     detail.Fields,
	}, nil
}

// getEntityDetail fetches the raw entity detail response.
func (c *Client) getEntityDetail(ctx context.Context, id string) (*entityDetail, error) {
	path := fmt.Sprintf("entities/%s", url.PathEscape(id))
	req, err := c.newRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, &APIError{Op: "get entity", Message: "failed to create request", Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &APIError{Op: "get entity", Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &APIError{Op: "get entity", StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	var detail entityDetail
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		return nil, &APIError{Op: "get entity", Message: "failed to decode entity response", Err: err}
	}
	if detail.ID == "" {
		return nil, &APIError{Op: "get entity", Message: "entity response has no id"}
	}
	return &detail, nil
}

// GetChangeSetIndex returns the index of the changeset associated with the
// given entity. Fails when the entity has no changeset.
func (c *Client) GetChangeSetIndex(ctx context.Context, entityID string) (string, error) {
	path := fmt.Sprintf("entities/%s/changeset", url.PathEscape(entityID))
	req, err := c.newRequest(ctx, "GET", path, nil)
	if err != nil {
		return "", &APIError{Op: "get changeset", Message: "failed to create request", Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &APIError{Op: "get changeset", Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", &APIError{Op: "get changeset", StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	var cs changeSetResponse
	if err := json.NewDecoder(resp.Body).Decode(&cs); err != nil {
		return "", &APIError{Op: "get changeset", Message: "failed to decode changeset response", Err: err}
	}
	if cs.Index == "" {
		return "", &APIError{Op: "get changeset", Message: "changeset response has no index"}
	}
	return cs.Index, nil
}

// AddToChangeSet adds an entity to the changeset with the given index.
func (c *Client) AddToChangeSet(ctx context.Context, entityID, changeSetIndex string) error {
	body, err := json.Marshal(map[string]string{"id": entityID})
	if err != nil {
		return &APIError{Op: "add to changeset", Message: "failed to marshal request", Err: err}
	}

	path := fmt.Sprintf("changesets/%s/entities", url.PathEscape(changeSetIndex))
	req, err := c.newRequest(ctx, "POST", path, bytes.NewReader(body))
	if err != nil {
		return &APIError{Op: "add to changeset", Message: "failed to create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &APIError{Op: "add to changeset", Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return &APIError{Op: "add to changeset", StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	return nil
}

// UploadFile uploads a local file as a new file entity and returns its id.
// The body streams as application/octet-stream; a sha256 checksum query
// parameter lets the server verify integrity.
func (c *Client) UploadFile(ctx context.Context, localPath, remoteName, typeTitle string) (string, error) {
	sum, err := fileChecksum(localPath)
	if err != nil {
		return "", &APIError{Op: "upload file", Message: fmt.Sprintf("failed to checksum %s", localPath), Err: err}
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", &APIError{Op: "upload file", Message: fmt.Sprintf("failed to open %s", localPath), Err: err}
	}
	defer f.Close()

	path := fmt.Sprintf("files?filename=%s&typeTitle=%s&sha256=%s",
		url.QueryEscape(remoteName), url.QueryEscape(typeTitle), sum)
	req, err := c.newRequest(ctx, "POST", path, f)
	if err != nil {
		return "", &APIError{Op: "upload file", Message: "failed to create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &APIError{Op: "upload file", Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return "", &APIError{Op: "upload file", StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	var up uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&up); err != nil {
		return "", &APIError{Op: "upload file", Message: "failed to decode upload response", Err: err}
	}
	if up.ID == "" {
		return "", &APIError{Op: "upload file", Message: "upload response has no id"}
	}
	return up.ID, nil
}

// GetFileVersion returns the current version of a file entity. Best-effort:
// any failure logs a warning and returns nil, which links to the latest
// version.
func (c *Client) GetFileVersion(ctx context.Context, fileID string) *int {
	detail, err := c.getEntityDetail(ctx, fileID)
	if err != nil {
		c.log.Warn("version lookup failed, linking latest",
			observability.String("fileID", fileID),
			observability.Err(err))
		return nil
	}
	return detail.Version
}

// PatchReferenceField replaces the value of a reference field with the
// given ordered list. The value is overwritten wholesale, never merged.
func (c *Client) PatchReferenceField(ctx context.Context, entityID, fieldName string, refs []FileRef) error {
	if refs == nil {
		refs = []FileRef{}
	}
	body, err := json.Marshal(map[string][]FileRef{"value": refs})
	if err != nil {
		return &APIError{Op: "patch field", Message: "failed to marshal request", Err: err}
	}

	path := fmt.Sprintf("entities/%s/fields/%s", url.PathEscape(entityID), url.PathEscape(fieldName))
	req, err := c.newRequest(ctx, "PATCH", path, bytes.NewReader(body))
	if err != nil {
		return &APIError{Op: "patch field", Message: "failed to create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &APIError{Op: "patch field", Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return &APIError{Op: "patch field", StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	return nil
}

// ArchiveEntity marks an entity as superseded on the platform. Callers
// treat failures as non-fatal and collect them.
func (c *Client) ArchiveEntity(ctx context.Context, entityID string) error {
	path := fmt.Sprintf("entities/%s/archive", url.PathEscape(entityID))
	req, err := c.newRequest(ctx, "POST", path, nil)
	if err != nil {
		return &APIError{Op: "archive entity", Message: "failed to create request", Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &APIError{Op: "archive entity", Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return &APIError{Op: "archive entity", StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	return nil
}

// fileChecksum computes the hex sha256 of a file's contents.
func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
