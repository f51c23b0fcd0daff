package biz_test

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/catalog-console/internal/catalog/biz"
	"github.com/kart-io/catalog-console/internal/model"
	"github.com/kart-io/catalog-console/pkg/errors"
	"github.com/kart-io/catalog-console/pkg/utils/httpclient"
)

func TestDiff(t *testing.T) {
	loaded := &model.Artifact{Type: "faq", Title: "T", Content: "C"}

	tests := []struct {
		name  string
		edits biz.EditFields
		want  model.UpdateArtifactRequest
	}{
		{
			name:  "title only",
			edits: biz.EditFields{Type: "faq", Title: "T2", Content: "C"},
			want:  model.UpdateArtifactRequest{Title: ptr("T2")},
		},
		{
			name:  "whitespace is not a change",
			edits: biz.EditFields{Type: " faq ", Title: "T\n", Content: "\tC"},
			want:  model.UpdateArtifactRequest{},
		},
		{
			name:  "trimmed values are sent",
			edits: biz.EditFields{Type: " howto ", Title: "T", Content: " C2 "},
			want:  model.UpdateArtifactRequest{Type: ptr("howto"), Content: ptr("C2")},
		},
		{
			name:  "cleared field is a change",
			edits: biz.EditFields{Type: "faq", Title: "T", Content: "  "},
			want:  model.UpdateArtifactRequest{Content: ptr("")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, biz.Diff(loaded, tt.edits))
		})
	}

	assert.True(t, biz.Diff(nil, biz.EditFields{Title: "x"}).IsEmpty())
}

func TestDiff_UntouchedFieldKeepsSurroundingWhitespace(t *testing.T) {
	loaded := &model.Artifact{Type: "faq", Title: "T", Content: "hello\n"}

	edits := biz.FieldsOf(loaded)
	edits.Title = "T2"
	req := biz.Diff(loaded, edits)

	assert.Equal(t, model.UpdateArtifactRequest{Title: ptr("T2")}, req)
}

func TestArtifactSession_Defaults(t *testing.T) {
	s := biz.NewArtifactSession()

	assert.Nil(t, s.Artifact())
	assert.Equal(t, biz.ContentMarkdown, s.Mode())
	require.NotNil(t, s.MaxContentLength())
	assert.Equal(t, biz.DefaultMaxContentLength, *s.MaxContentLength())
	assert.False(t, s.CanEdit())

	s.SetMaxContentLengthInput("12345.9")
	assert.Equal(t, 12345, *s.MaxContentLength())
	assert.False(t, biz.IsPresetLength(12345))
	assert.True(t, biz.IsPresetLength(10000))

	for _, in := range []string{"", "abc", "0", "-5", "NaN", "Infinity"} {
		s.SetMaxContentLengthInput(in)
		assert.Nil(t, s.MaxContentLength(), "input %q", in)
	}

	s.SetMaxContentLength(50000)
	assert.Equal(t, 50000, *s.MaxContentLength())
	s.SetMaxContentLength(0)
	assert.Nil(t, s.MaxContentLength())
}

func TestParseContentMode(t *testing.T) {
	m, err := biz.ParseContentMode(" RAW ")
	require.NoError(t, err)
	assert.Equal(t, biz.ContentRaw, m)

	_, err = biz.ParseContentMode("html")
	assert.True(t, errors.Is(err, errors.ErrInvalidContentMode))
}

func loadRaw(t *testing.T, ctrl *biz.ArtifactController, id int64) *biz.ArtifactSession {
	t.Helper()
	s := biz.NewArtifactSession()
	_, err := ctrl.Load(context.Background(), s, id)
	require.NoError(t, err)
	s.SetMode(biz.ContentRaw)
	return s
}

func TestArtifactController_Load(t *testing.T) {
	e := setup(t)
	a := e.seed(t, "guide", "Intro", "hello")
	ctrl := biz.NewArtifactController(e.gw, e.metrics)

	s := biz.NewArtifactSession()
	_, err := ctrl.Load(context.Background(), s, 0)
	assert.True(t, errors.Is(err, errors.ErrInvalidArtifactID))
	assert.Empty(t, e.mock.Calls())

	eff, err := ctrl.Load(context.Background(), s, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", eff.Content)
	assert.True(t, s.IsDraft())
	assert.False(t, s.CanEdit())

	s.SetMode(biz.ContentRaw)
	assert.True(t, s.CanEdit())

	_, err = ctrl.Load(context.Background(), s, 999)
	var apiErr *httpclient.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, a.ID, s.Artifact().ID)
}

func TestArtifactController_LoadMore(t *testing.T) {
	e := setup(t)
	a := e.seed(t, "guide", "Long", strings.Repeat("x", 300000))
	ctrl := biz.NewArtifactController(e.gw, e.metrics)

	s := biz.NewArtifactSession()
	_, err := ctrl.LoadMore(context.Background(), s)
	assert.True(t, errors.Is(err, errors.ErrNoArtifactLoaded))

	eff, err := ctrl.Load(context.Background(), s, a.ID)
	require.NoError(t, err)
	assert.True(t, eff.StillTruncated)
	e.mock.ResetCalls()

	s.SetMaxContentLength(250000)
	eff, err = ctrl.LoadMore(context.Background(), s)
	require.NoError(t, err)

	calls := e.mock.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "250000", calls[0].Query.Get("maxContentLength"))
	assert.False(t, eff.AutoExpanded)
	assert.True(t, eff.ContentTruncated)
	assert.False(t, eff.StillTruncated)
	assert.Len(t, eff.Content, 250000)
}

func TestArtifactController_SaveNoChanges(t *testing.T) {
	e := setup(t)
	a := e.seed(t, "faq", "T", "C")
	ctrl := biz.NewArtifactController(e.gw, e.metrics)
	s := loadRaw(t, ctrl, a.ID)
	e.mock.ResetCalls()

	res, err := ctrl.Save(context.Background(), s, biz.FieldsOf(&s.Artifact().Artifact))
	require.NoError(t, err)

	assert.True(t, res.NoChanges)
	assert.Equal(t, biz.MsgNoChanges, res.Message)
	assert.Equal(t, a.ID, res.Artifact.ID)
	assert.Empty(t, e.mock.Calls())
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.SaveOutcomes.WithLabelValues("no_changes")))
}

func TestArtifactController_SaveRequiresDraft(t *testing.T) {
	e := setup(t)
	a := e.seed(t, "faq", "T", "C")
	require.NoError(t, e.mock.SetStatus(a.ID, model.StatusApproved))
	ctrl := biz.NewArtifactController(e.gw, e.metrics)
	s := loadRaw(t, ctrl, a.ID)
	e.mock.ResetCalls()

	assert.False(t, s.CanEdit())
	_, err := ctrl.Save(context.Background(), s, biz.EditFields{Type: "faq", Title: "T2", Content: "C"})
	assert.True(t, errors.Is(err, errors.ErrEditNotPermitted))
	assert.Empty(t, e.mock.Calls())
}

func TestArtifactController_SaveRequiresRawMode(t *testing.T) {
	e := setup(t)
	a := e.seed(t, "faq", "T", "C")
	ctrl := biz.NewArtifactController(e.gw, nil)
	s := loadRaw(t, ctrl, a.ID)
	s.SetMode(biz.ContentMarkdown)
	e.mock.ResetCalls()

	_, err := ctrl.Save(context.Background(), s, biz.EditFields{Type: "faq", Title: "T2", Content: "C"})
	assert.True(t, errors.Is(err, errors.ErrEditRequiresRawMode))
	assert.Empty(t, e.mock.Calls())

	_, err = ctrl.Save(context.Background(), biz.NewArtifactSession(), biz.EditFields{})
	assert.True(t, errors.Is(err, errors.ErrNoArtifactLoaded))
}

func TestArtifactController_SaveSendsMinimalPatch(t *testing.T) {
	e := setup(t)
	a := e.seed(t, "faq", "T", "C")
	ctrl := biz.NewArtifactController(e.gw, e.metrics)
	s := loadRaw(t, ctrl, a.ID)
	e.mock.ResetCalls()

	res, err := ctrl.Save(context.Background(), s, biz.EditFields{Type: "faq", Title: " T2 ", Content: "C"})
	require.NoError(t, err)

	assert.False(t, res.NoChanges)
	assert.Equal(t, biz.MsgArtifactUpdated, res.Message)
	assert.Equal(t, "T2", res.Artifact.Title)
	assert.Equal(t, int64(2), res.Artifact.Version)
	assert.Equal(t, "T2", s.Artifact().Title)

	calls := e.mock.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodPatch, calls[0].Method)
	assert.Equal(t, "4000", calls[0].Query.Get("maxContentLength"))
	assert.True(t, calls[0].Body)
}

func TestArtifactController_SaveReconcilesTruncatedResponse(t *testing.T) {
	e := setup(t)
	a := e.seed(t, "faq", "T", strings.Repeat("c", 50))
	ctrl := biz.NewArtifactController(e.gw, nil)
	s := biz.NewArtifactSession()
	s.SetMaxContentLength(10)
	_, err := ctrl.Load(context.Background(), s, a.ID)
	require.NoError(t, err)
	s.SetMode(biz.ContentRaw)
	e.mock.ResetCalls()

	res, err := ctrl.Save(context.Background(), s, biz.EditFields{
		Type:    "faq",
		Title:   "T",
		Content: strings.Repeat("d", 60),
	})
	require.NoError(t, err)

	calls := e.mock.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, http.MethodPatch, calls[0].Method)
	assert.Equal(t, "10", calls[0].Query.Get("maxContentLength"))
	assert.Equal(t, http.MethodGet, calls[1].Method)
	assert.Equal(t, "200000", calls[1].Query.Get("maxContentLength"))

	assert.True(t, res.Artifact.AutoExpanded)
	assert.Equal(t, strings.Repeat("d", 60), res.Artifact.Content)
	assert.True(t, res.Artifact.Consistent())
}

func TestArtifactController_SaveKeepsTruncatedContent(t *testing.T) {
	e := setup(t)
	a := e.seed(t, "faq", "T", "ab cdefgh")
	ctrl := biz.NewArtifactController(e.gw, e.metrics)
	s := biz.NewArtifactSession()
	s.SetMaxContentLength(3)
	eff, err := ctrl.LoadExact(context.Background(), s, a.ID)
	require.NoError(t, err)
	require.True(t, eff.ContentTruncated)
	assert.Equal(t, "ab ", eff.Content)
	s.SetMode(biz.ContentRaw)
	e.mock.ResetCalls()

	edits := biz.FieldsOf(&s.Artifact().Artifact)
	edits.Content = "replaced"
	_, err = ctrl.Save(context.Background(), s, edits)
	assert.True(t, errors.Is(err, errors.ErrContentIncomplete))
	assert.Empty(t, e.mock.Calls())
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.SaveOutcomes.WithLabelValues("content_incomplete")))

	edits = biz.FieldsOf(&s.Artifact().Artifact)
	edits.Title = "T2"
	res, err := ctrl.Save(context.Background(), s, edits)
	require.NoError(t, err)
	assert.Equal(t, "T2", res.Artifact.Title)

	stored, err := e.gw.GetArtifact(context.Background(), a.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "ab cdefgh", stored.Content)
	assert.Equal(t, "T2", stored.Title)
}

func TestArtifactController_SaveConflict(t *testing.T) {
	e := setup(t)
	a := e.seed(t, "guide", "Intro", "hello")
	ctrl := biz.NewArtifactController(e.gw, e.metrics)
	s := loadRaw(t, ctrl, a.ID)

	// 其他人已审批
	require.NoError(t, e.mock.SetStatus(a.ID, model.StatusApproved))

	_, err := ctrl.Save(context.Background(), s, biz.EditFields{Type: "guide", Title: "Intro v2", Content: "hello"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDraftOnlyEdit))
	assert.Equal(t, "Editing is only available for DRAFT artifacts.", biz.UIMessage(err))

	var apiErr *httpclient.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)

	cur := s.Artifact()
	assert.Equal(t, "Intro", cur.Title)
	assert.Equal(t, model.StatusDraft, cur.Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.SaveOutcomes.WithLabelValues("conflict")))

	saving, _ := s.Busy()
	assert.False(t, saving)
}

func TestArtifactController_Approve(t *testing.T) {
	e := setup(t)
	a := e.seed(t, "guide", "Intro", "hello")
	ctrl := biz.NewArtifactController(e.gw, e.metrics)
	s := loadRaw(t, ctrl, a.ID)
	e.mock.ResetCalls()

	res, err := ctrl.Approve(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, biz.MsgArtifactApproved, res.Message)
	assert.Equal(t, model.StatusApproved, res.Artifact.Status)
	assert.Equal(t, model.StatusApproved, s.Artifact().Status)
	assert.False(t, s.CanEdit())

	calls := e.mock.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, http.MethodPost, calls[0].Method)
	assert.Equal(t, "/artifacts/1/approve", calls[0].Path)
	assert.False(t, calls[0].Body)
	assert.Equal(t, http.MethodGet, calls[1].Method)
	assert.Equal(t, "/artifacts/1", calls[1].Path)
}

func TestArtifactController_DeprecateRejected(t *testing.T) {
	e := setup(t)
	a := e.seed(t, "guide", "Intro", "hello")
	ctrl := biz.NewArtifactController(e.gw, e.metrics)
	s := loadRaw(t, ctrl, a.ID)
	e.mock.ResetCalls()

	_, err := ctrl.Deprecate(context.Background(), s)
	var apiErr *httpclient.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, apiErr.Message, biz.UIMessage(err))

	assert.Len(t, e.mock.Calls(), 1)
	assert.Equal(t, model.StatusDraft, s.Artifact().Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.TransitionOutcomes.WithLabelValues("deprecate", "rejected")))

	_, changing := s.Busy()
	assert.False(t, changing)
}

func TestArtifactController_Deprecate(t *testing.T) {
	e := setup(t)
	a := e.seed(t, "guide", "Intro", "hello")
	ctrl := biz.NewArtifactController(e.gw, nil)
	s := loadRaw(t, ctrl, a.ID)

	_, err := ctrl.Approve(context.Background(), s)
	require.NoError(t, err)
	res, err := ctrl.Deprecate(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, biz.MsgArtifactDeprecated, res.Message)
	assert.Equal(t, model.StatusDeprecated, s.Artifact().Status)

	_, err = ctrl.Approve(context.Background(), s)
	require.Error(t, err)
	assert.Equal(t, model.StatusDeprecated, s.Artifact().Status)
}

// blockingWriter 在 PatchArtifact 中阻塞，直到 release 被关闭。
type blockingWriter struct {
	biz.ArtifactWriter
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newBlockingWriter(w biz.ArtifactWriter) *blockingWriter {
	return &blockingWriter{ArtifactWriter: w, entered: make(chan struct{}), release: make(chan struct{})}
}

func (b *blockingWriter) PatchArtifact(ctx context.Context, id int64, req model.UpdateArtifactRequest, maxContentLength *int) (*model.Artifact, error) {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return b.ArtifactWriter.PatchArtifact(ctx, id, req, maxContentLength)
}

func TestArtifactController_SaveRejectsDuplicateSubmission(t *testing.T) {
	e := setup(t)
	a := e.seed(t, "guide", "Intro", "hello")
	w := newBlockingWriter(e.gw)
	ctrl := biz.NewArtifactController(w, nil)
	s := loadRaw(t, ctrl, a.ID)

	edits := biz.EditFields{Type: "guide", Title: "Intro v2", Content: "hello"}
	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Save(context.Background(), s, edits)
		done <- err
	}()
	<-w.entered

	saving, _ := s.Busy()
	assert.True(t, saving)
	_, err := ctrl.Save(context.Background(), s, edits)
	assert.True(t, errors.Is(err, errors.ErrBusy))

	close(w.release)
	require.NoError(t, <-done)

	saving, _ = s.Busy()
	assert.False(t, saving)
	assert.Equal(t, "Intro v2", s.Artifact().Title)
	assert.Len(t, e.callsTo("/artifacts/1"), 2)
}

// gatedFetcher 获取 blockID 时阻塞，直到 release 被关闭。
type gatedFetcher struct {
	biz.ArtifactWriter
	blockID int64
	entered chan struct{}
	release chan struct{}
}

func (g *gatedFetcher) GetArtifact(ctx context.Context, id int64, maxContentLength *int) (*model.Artifact, error) {
	if id == g.blockID {
		close(g.entered)
		<-g.release
	}
	return g.ArtifactWriter.GetArtifact(ctx, id, maxContentLength)
}

func TestArtifactController_DiscardsStaleLoad(t *testing.T) {
	e := setup(t)
	first := e.seed(t, "guide", "First", "one")
	second := e.seed(t, "guide", "Second", "two")

	f := &gatedFetcher{
		ArtifactWriter: e.gw,
		blockID:        first.ID,
		entered:        make(chan struct{}),
		release:        make(chan struct{}),
	}
	ctrl := biz.NewArtifactController(f, e.metrics)
	s := biz.NewArtifactSession()

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Load(context.Background(), s, first.ID)
		done <- err
	}()
	<-f.entered

	_, err := ctrl.Load(context.Background(), s, second.ID)
	require.NoError(t, err)

	close(f.release)
	assert.True(t, errors.Is(<-done, errors.ErrStaleResponse))
	assert.Equal(t, second.ID, s.Artifact().ID)
	assert.Equal(t, "Second", s.Artifact().Title)
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.StaleResponses.WithLabelValues("artifact")))
}

func TestArtifactController_SessionsAreIndependent(t *testing.T) {
	e := setup(t)
	a := e.seed(t, "guide", "Intro", "hello")
	b := e.seed(t, "guide", "Other", "world")
	ctrl := biz.NewArtifactController(e.gw, nil)

	s1 := loadRaw(t, ctrl, a.ID)
	s2 := loadRaw(t, ctrl, b.ID)

	_, err := ctrl.Save(context.Background(), s1, biz.EditFields{Type: "guide", Title: "Intro v2", Content: "hello"})
	require.NoError(t, err)

	assert.Equal(t, "Intro v2", s1.Artifact().Title)
	assert.Equal(t, "Other", s2.Artifact().Title)
}

func TestArtifactController_LoadExact(t *testing.T) {
	e := setup(t)
	a := e.seed(t, "guide", "Long", strings.Repeat("x", 20))
	ctrl := biz.NewArtifactController(e.gw, nil)

	s := biz.NewArtifactSession()
	s.SetMaxContentLengthInput("8")
	eff, err := ctrl.LoadExact(context.Background(), s, a.ID)
	require.NoError(t, err)

	assert.Len(t, e.mock.Calls(), 1)
	assert.True(t, eff.ContentTruncated)
	assert.False(t, eff.AutoExpanded)
	assert.Equal(t, "xxxxxxxx", s.Artifact().Content)

	_, err = ctrl.LoadExact(context.Background(), s, -1)
	assert.True(t, errors.Is(err, errors.ErrInvalidArtifactID))
}

// blockingTransitions 在 ApproveArtifact 中阻塞，直到 release 被关闭。
type blockingTransitions struct {
	biz.ArtifactWriter
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (b *blockingTransitions) ApproveArtifact(ctx context.Context, id int64, maxContentLength *int) (*model.Artifact, error) {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return b.ArtifactWriter.ApproveArtifact(ctx, id, maxContentLength)
}

func TestArtifactController_TransitionRejectsConcurrentChange(t *testing.T) {
	e := setup(t)
	a := e.seed(t, "guide", "Intro", "hello")
	w := &blockingTransitions{ArtifactWriter: e.gw, entered: make(chan struct{}), release: make(chan struct{})}
	ctrl := biz.NewArtifactController(w, nil)
	s := loadRaw(t, ctrl, a.ID)

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Approve(context.Background(), s)
		done <- err
	}()
	<-w.entered

	_, changing := s.Busy()
	assert.True(t, changing)
	_, err := ctrl.Approve(context.Background(), s)
	assert.True(t, errors.Is(err, errors.ErrBusy))
	_, err = ctrl.Deprecate(context.Background(), s)
	assert.True(t, errors.Is(err, errors.ErrBusy))

	close(w.release)
	require.NoError(t, <-done)

	_, changing = s.Busy()
	assert.False(t, changing)
	assert.Equal(t, model.StatusApproved, s.Artifact().Status)
	assert.Len(t, e.callsTo("/artifacts/1/approve"), 1)
	assert.Empty(t, e.callsTo("/artifacts/1/deprecate"))
}

// bodilessTransitions 执行状态流转但不返回制品，模拟 204 响应。
type bodilessTransitions struct {
	biz.ArtifactWriter
}

func (b bodilessTransitions) ApproveArtifact(ctx context.Context, id int64, maxContentLength *int) (*model.Artifact, error) {
	if _, err := b.ArtifactWriter.ApproveArtifact(ctx, id, maxContentLength); err != nil {
		return nil, err
	}
	return nil, nil
}

func TestArtifactController_ApproveWithoutResponseBody(t *testing.T) {
	e := setup(t)
	a := e.seed(t, "guide", "Intro", "hello")
	ctrl := biz.NewArtifactController(bodilessTransitions{ArtifactWriter: e.gw}, e.metrics)
	s := loadRaw(t, ctrl, a.ID)
	e.mock.ResetCalls()

	res, err := ctrl.Approve(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, biz.MsgArtifactApproved, res.Message)
	assert.Equal(t, model.StatusApproved, s.Artifact().Status)
	assert.Len(t, e.callsTo("/artifacts/1"), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.TransitionOutcomes.WithLabelValues("approve", "ok")))
}
