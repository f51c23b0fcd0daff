package gateway_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/catalog-console/internal/catalog/gateway"
	"github.com/kart-io/catalog-console/internal/catalog/mockserver"
	"github.com/kart-io/catalog-console/internal/model"
	"github.com/kart-io/catalog-console/pkg/utils/httpclient"
)

func setup(t *testing.T) (*gateway.Gateway, *mockserver.Server) {
	t.Helper()
	mock := mockserver.New()
	srv := httptest.NewServer(mock.Handler())
	t.Cleanup(srv.Close)
	return gateway.New(httpclient.NewClient(srv.URL + "/api")), mock
}

func ptr[T any](v T) *T { return &v }

func TestGateway_Projects(t *testing.T) {
	gw, mock := setup(t)
	ctx := context.Background()

	docs, err := gw.CreateProject(ctx, "Docs")
	require.NoError(t, err)
	assert.Equal(t, "Docs", docs.Name)
	_, err = gw.CreateProject(ctx, "Docs Archive")
	require.NoError(t, err)
	_, err = gw.CreateProject(ctx, "Ops")
	require.NoError(t, err)

	first, err := gw.ListProjects(ctx, nil)
	require.NoError(t, err)
	second, err := gw.ListProjects(ctx, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, first, second)
	assert.Len(t, first, 3)

	filtered, err := gw.ListProjects(ctx, ptr("do"))
	require.NoError(t, err)
	assert.Len(t, filtered, 2)

	got, err := gw.GetProject(ctx, docs.ID)
	require.NoError(t, err)
	assert.Equal(t, *docs, *got)

	calls := mock.Calls()
	assert.False(t, calls[3].Query.Has("name"))
	assert.Equal(t, "do", calls[5].Query.Get("name"))
}

func TestGateway_GetProjectNotFound(t *testing.T) {
	gw, _ := setup(t)

	_, err := gw.GetProject(context.Background(), 99)
	var apiErr *httpclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Project 99 not found", apiErr.Message)
	assert.NotEmpty(t, apiErr.Timestamp)
}

func TestGateway_ArtifactLifecycle(t *testing.T) {
	gw, mock := setup(t)
	ctx := context.Background()

	p, err := gw.CreateProject(ctx, "Docs")
	require.NoError(t, err)

	a, err := gw.CreateArtifact(ctx, model.CreateArtifactRequest{
		ProjectID: p.ID, Type: "guide", Title: "Intro", Content: "hello",
	}, ptr(4000))
	require.NoError(t, err)
	assert.Equal(t, model.StatusDraft, a.Status)
	assert.Equal(t, int64(1), a.Version)

	patched, err := gw.PatchArtifact(ctx, a.ID, model.UpdateArtifactRequest{Title: ptr("Intro v2")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Intro v2", patched.Title)
	assert.Equal(t, "hello", patched.Content)

	approved, err := gw.ApproveArtifact(ctx, a.ID, ptr(4000))
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, approved.Status)

	_, err = gw.PatchArtifact(ctx, a.ID, model.UpdateArtifactRequest{Title: ptr("x")}, nil)
	var apiErr *httpclient.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)

	deprecated, err := gw.DeprecateArtifact(ctx, a.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDeprecated, deprecated.Status)

	for _, c := range mock.Calls() {
		if c.Path == "/artifacts/1/approve" || c.Path == "/artifacts/1/deprecate" {
			assert.False(t, c.Body, c.Path)
		}
	}
}

func TestGateway_MaxContentLength(t *testing.T) {
	gw, mock := setup(t)
	ctx := context.Background()

	a, err := mock.Seed(0, "guide", "Long", "0123456789")
	require.NoError(t, err)

	got, err := gw.GetArtifact(ctx, a.ID, ptr(4))
	require.NoError(t, err)
	assert.Equal(t, "0123", got.Content)
	assert.True(t, got.ContentTruncated)
	assert.Equal(t, 10, got.ContentLength)

	got, err = gw.GetArtifact(ctx, a.ID, nil)
	require.NoError(t, err)
	assert.False(t, got.ContentTruncated)

	calls := mock.Calls()
	assert.Equal(t, "4", calls[0].Query.Get("maxContentLength"))
	assert.False(t, calls[1].Query.Has("maxContentLength"))
}

func TestGateway_SearchQueryShaping(t *testing.T) {
	gw, mock := setup(t)
	ctx := context.Background()

	p, err := gw.CreateProject(ctx, "Docs")
	require.NoError(t, err)
	mock.ResetCalls()

	status := model.StatusDraft
	_, err = gw.SearchArtifacts(ctx, model.SearchArtifactsParams{
		ProjectID: p.ID,
		Query:     "",
		Status:    &status,
		TopK:      ptr(20),
	})
	require.NoError(t, err)

	q := mock.Calls()[0].Query
	assert.True(t, q.Has("query"))
	assert.Equal(t, "", q.Get("query"))
	assert.Equal(t, "DRAFT", q.Get("status"))
	assert.Equal(t, "20", q.Get("topK"))
	assert.False(t, q.Has("type"))
	assert.False(t, q.Has("mode"))
	assert.False(t, q.Has("maxSnippetLength"))
}

func TestGateway_Reindex(t *testing.T) {
	gw, mock := setup(t)
	ctx := context.Background()

	a, err := mock.Seed(0, "guide", "A", "content")
	require.NoError(t, err)
	require.NoError(t, mock.SetStatus(a.ID, model.StatusApproved))

	status := model.StatusApproved
	res, err := gw.ReindexProject(ctx, a.ProjectID, model.ReindexParams{Status: &status, Limit: ptr(100)})
	require.NoError(t, err)
	assert.Equal(t, a.ProjectID, res.ProjectID)
	assert.Equal(t, 1, res.Processed)
	assert.Zero(t, res.Failed)

	q := mock.Calls()[0].Query
	assert.Equal(t, "100", q.Get("limit"))
	assert.False(t, q.Has("type"))
}

type emptySender struct{}

func (emptySender) Send(context.Context, string, string, any, httpclient.Query) (*httpclient.Result, error) {
	return &httpclient.Result{Status: http.StatusNoContent}, nil
}

func TestGateway_EmptyResponses(t *testing.T) {
	gw := gateway.New(emptySender{})
	ctx := context.Background()

	projects, err := gw.ListProjects(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, projects)

	_, err = gw.GetArtifact(ctx, 1, nil)
	require.Error(t, err)
}

func TestGateway_TransitionWithoutBody(t *testing.T) {
	gw := gateway.New(emptySender{})
	ctx := context.Background()

	approved, err := gw.ApproveArtifact(ctx, 1, nil)
	require.NoError(t, err)
	assert.Nil(t, approved)

	deprecated, err := gw.DeprecateArtifact(ctx, 1, ptr(4000))
	require.NoError(t, err)
	assert.Nil(t, deprecated)
}

type rawSender struct{ body string }

func (s rawSender) Send(context.Context, string, string, any, httpclient.Query) (*httpclient.Result, error) {
	return &httpclient.Result{Status: http.StatusOK, Body: []byte(s.body)}, nil
}

func TestGateway_GetArtifactZonelessTimestamp(t *testing.T) {
	gw := gateway.New(rawSender{body: `{"id":1,"projectId":1,"type":"guide","title":"T","content":"c",` +
		`"status":"DRAFT","version":1,"updatedAt":"2024-05-01T10:00:00.123456","contentTruncated":false,"contentLength":1}`})

	a, err := gw.GetArtifact(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 2024, a.UpdatedAt.Time.Year())
	assert.Equal(t, "2024-05-01T10:00:00Z", a.UpdatedAt.String())
}
