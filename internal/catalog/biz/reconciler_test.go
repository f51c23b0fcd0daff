package biz_test

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/catalog-console/internal/catalog/biz"
	"github.com/kart-io/catalog-console/internal/model"
	"github.com/kart-io/catalog-console/pkg/errors"
)

func TestReconciler_NotTruncated(t *testing.T) {
	e := setup(t)
	a := e.seed(t, "guide", "Intro", "hello")

	eff, err := biz.NewReconciler(e.gw, e.metrics).Load(context.Background(), a.ID, biz.LoadOptions{MaxContentLength: ptr(4000)})
	require.NoError(t, err)

	assert.Equal(t, "hello", eff.Content)
	assert.False(t, eff.AutoExpanded)
	assert.False(t, eff.StillTruncated)
	assert.Len(t, e.mock.Calls(), 1)
}

func TestReconciler_AutoExpandsOnce(t *testing.T) {
	e := setup(t)
	content := strings.Repeat("a", 5000)
	a := e.seed(t, "guide", "Long", content)

	eff, err := biz.NewReconciler(e.gw, e.metrics).Load(context.Background(), a.ID, biz.LoadOptions{MaxContentLength: ptr(4000)})
	require.NoError(t, err)

	calls := e.mock.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "4000", calls[0].Query.Get("maxContentLength"))
	assert.Equal(t, "200000", calls[1].Query.Get("maxContentLength"))

	assert.True(t, eff.AutoExpanded)
	assert.False(t, eff.StillTruncated)
	assert.False(t, eff.ContentTruncated)
	assert.Equal(t, content, eff.Content)
	assert.True(t, eff.Consistent())
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.ContentExpansions))
}

func TestReconciler_StillTruncatedIsTerminal(t *testing.T) {
	e := setup(t)
	a := e.seed(t, "guide", "Huge", strings.Repeat("b", biz.FullContentCeiling+1))

	eff, err := biz.NewReconciler(e.gw, e.metrics).Load(context.Background(), a.ID, biz.LoadOptions{MaxContentLength: ptr(4000)})
	require.NoError(t, err)

	assert.Len(t, e.mock.Calls(), 2)
	assert.True(t, eff.AutoExpanded)
	assert.True(t, eff.StillTruncated)
	assert.True(t, eff.ContentTruncated)
	assert.Equal(t, biz.FullContentCeiling, len(eff.Content))
	assert.Equal(t, biz.FullContentCeiling+1, eff.ContentLength)
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.StillTruncated))
}

func TestReconciler_SkipAutoExpand(t *testing.T) {
	e := setup(t)
	a := e.seed(t, "guide", "Long", strings.Repeat("a", 5000))

	eff, err := biz.NewReconciler(e.gw, e.metrics).Load(context.Background(), a.ID, biz.LoadOptions{
		MaxContentLength: ptr(10),
		SkipAutoExpand:   true,
	})
	require.NoError(t, err)

	assert.Len(t, e.mock.Calls(), 1)
	assert.True(t, eff.ContentTruncated)
	assert.False(t, eff.AutoExpanded)
	assert.False(t, eff.StillTruncated)
	assert.Len(t, eff.Content, 10)
}

type stubFetcher struct {
	responses []*model.Artifact
	caps      []*int
}

func (s *stubFetcher) GetArtifact(_ context.Context, _ int64, maxContentLength *int) (*model.Artifact, error) {
	s.caps = append(s.caps, maxContentLength)
	a := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return a, nil
}

func TestReconciler_RejectsInconsistentPayload(t *testing.T) {
	tests := []struct {
		name      string
		responses []*model.Artifact
		calls     int
	}{
		{
			name:      "content longer than contentLength",
			responses: []*model.Artifact{{ID: 1, Content: "hello", ContentLength: 3}},
			calls:     1,
		},
		{
			name:      "short content without truncation flag",
			responses: []*model.Artifact{{ID: 1, Content: "he", ContentLength: 5}},
			calls:     1,
		},
		{
			name: "inconsistent follow-up",
			responses: []*model.Artifact{
				{ID: 1, Content: "he", ContentLength: 5, ContentTruncated: true},
				{ID: 1, Content: "hello", ContentLength: 5, ContentTruncated: true},
			},
			calls: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &stubFetcher{responses: tt.responses}
			_, err := biz.NewReconciler(f, nil).Load(context.Background(), 1, biz.LoadOptions{})
			assert.True(t, errors.Is(err, errors.ErrInconsistentArtifact), "got %v", err)
			assert.Len(t, f.caps, tt.calls)
		})
	}
}

func TestReconciler_ReconcileAlreadyFetched(t *testing.T) {
	f := &stubFetcher{responses: []*model.Artifact{{ID: 9, Content: "hello", ContentLength: 5}}}
	raw := &model.Artifact{ID: 9, Content: "he", ContentLength: 5, ContentTruncated: true}

	eff, err := biz.NewReconciler(f, nil).Reconcile(context.Background(), raw, false)
	require.NoError(t, err)

	require.Len(t, f.caps, 1)
	assert.Equal(t, biz.FullContentCeiling, *f.caps[0])
	assert.Equal(t, "hello", eff.Content)
	assert.True(t, eff.AutoExpanded)
}
