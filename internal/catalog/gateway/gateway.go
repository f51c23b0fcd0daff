// Package gateway maps typed catalog operations onto transport calls.
//
// The gateway holds no business rules: it shapes paths, query parameters and
// bodies, decodes responses, and returns transport errors unchanged.
package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kart-io/catalog-console/internal/model"
	"github.com/kart-io/catalog-console/pkg/errors"
	"github.com/kart-io/catalog-console/pkg/utils/httpclient"
)

// Sender issues one request against the catalog API base.
type Sender interface {
	Send(ctx context.Context, method, path string, body any, query httpclient.Query) (*httpclient.Result, error)
}

// Gateway is the typed catalog client.
type Gateway struct {
	client Sender
}

// New creates a Gateway on top of client.
func New(client Sender) *Gateway {
	return &Gateway{client: client}
}

// ListProjects returns all projects, optionally filtered by name prefix.
func (g *Gateway) ListProjects(ctx context.Context, namePrefix *string) ([]model.Project, error) {
	var out []model.Project
	if err := g.do(ctx, http.MethodGet, "/projects", nil, httpclient.Query{"name": namePrefix}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateProject creates a project.
func (g *Gateway) CreateProject(ctx context.Context, name string) (*model.Project, error) {
	var out model.Project
	body := model.CreateProjectRequest{Name: name}
	if err := g.do(ctx, http.MethodPost, "/projects", body, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetProject fetches a project by id.
func (g *Gateway) GetProject(ctx context.Context, id int64) (*model.Project, error) {
	var out model.Project
	if err := g.do(ctx, http.MethodGet, fmt.Sprintf("/projects/%d", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchArtifacts runs a search. query is always transmitted.
func (g *Gateway) SearchArtifacts(ctx context.Context, p model.SearchArtifactsParams) ([]model.SearchResultItem, error) {
	q := httpclient.Query{
		"projectId":        p.ProjectID,
		"query":            p.Query,
		"status":           p.Status,
		"type":             p.Type,
		"mode":             p.Mode,
		"topK":             p.TopK,
		"maxSnippetLength": p.MaxSnippetLength,
	}
	var out []model.SearchResultItem
	if err := g.do(ctx, http.MethodGet, "/artifacts/search", nil, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateArtifact creates a DRAFT artifact. maxContentLength shapes the echoed content.
func (g *Gateway) CreateArtifact(ctx context.Context, req model.CreateArtifactRequest, maxContentLength *int) (*model.Artifact, error) {
	return g.artifact(ctx, http.MethodPost, "/artifacts", req, maxContentLength)
}

// GetArtifact fetches an artifact.
func (g *Gateway) GetArtifact(ctx context.Context, id int64, maxContentLength *int) (*model.Artifact, error) {
	return g.artifact(ctx, http.MethodGet, artifactPath(id, ""), nil, maxContentLength)
}

// PatchArtifact sends a partial update.
func (g *Gateway) PatchArtifact(ctx context.Context, id int64, req model.UpdateArtifactRequest, maxContentLength *int) (*model.Artifact, error) {
	return g.artifact(ctx, http.MethodPatch, artifactPath(id, ""), req, maxContentLength)
}

// ApproveArtifact moves a DRAFT artifact to APPROVED.
// The returned artifact is nil when the service answers without a body.
func (g *Gateway) ApproveArtifact(ctx context.Context, id int64, maxContentLength *int) (*model.Artifact, error) {
	return g.transition(ctx, artifactPath(id, "/approve"), maxContentLength)
}

// DeprecateArtifact moves an APPROVED artifact to DEPRECATED.
// The returned artifact is nil when the service answers without a body.
func (g *Gateway) DeprecateArtifact(ctx context.Context, id int64, maxContentLength *int) (*model.Artifact, error) {
	return g.transition(ctx, artifactPath(id, "/deprecate"), maxContentLength)
}

// ReindexProject triggers a reindex of a project's artifacts.
func (g *Gateway) ReindexProject(ctx context.Context, projectID int64, p model.ReindexParams) (*model.ReindexResult, error) {
	q := httpclient.Query{
		"status": p.Status,
		"type":   p.Type,
		"limit":  p.Limit,
	}
	var out model.ReindexResult
	path := fmt.Sprintf("/admin/projects/%d/reindex", projectID)
	if err := g.do(ctx, http.MethodPost, path, nil, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *Gateway) artifact(ctx context.Context, method, path string, body any, maxContentLength *int) (*model.Artifact, error) {
	var out model.Artifact
	if err := g.do(ctx, method, path, body, httpclient.Query{"maxContentLength": maxContentLength}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *Gateway) transition(ctx context.Context, path string, maxContentLength *int) (*model.Artifact, error) {
	res, err := g.client.Send(ctx, http.MethodPost, path, nil, httpclient.Query{"maxContentLength": maxContentLength})
	if err != nil {
		return nil, err
	}
	if res.Empty() {
		return nil, nil
	}
	var out model.Artifact
	if err := res.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *Gateway) do(ctx context.Context, method, path string, body any, q httpclient.Query, out any) error {
	res, err := g.client.Send(ctx, method, path, body, q)
	if err != nil {
		return err
	}
	if res.Empty() {
		switch out.(type) {
		case *[]model.Project, *[]model.SearchResultItem:
			// 列表接口无内容时视为空列表
			return nil
		}
		return errors.ErrEmptyResponse.WithMessagef("%s %s returned no content", method, path)
	}
	return res.Decode(out)
}

func artifactPath(id int64, suffix string) string {
	return fmt.Sprintf("/artifacts/%d%s", id, suffix)
}
