package biz

import (
	"context"
	"strings"
	"sync"

	"github.com/kart-io/logger"

	"github.com/kart-io/catalog-console/internal/catalog/metrics"
	"github.com/kart-io/catalog-console/internal/model"
	"github.com/kart-io/catalog-console/pkg/errors"
	"github.com/kart-io/catalog-console/pkg/utils/httpclient"
)

// DefaultMaxContentLength 详情视图默认的内容长度上限。
const DefaultMaxContentLength = 4000

// ContentLengthPresets 内容长度预设值，其余取值视为自定义。
var ContentLengthPresets = []int{4000, 10000, 50000}

// IsPresetLength 判断 n 是否为预设值。
func IsPresetLength(n int) bool {
	for _, p := range ContentLengthPresets {
		if p == n {
			return true
		}
	}
	return false
}

// ContentMode 内容显示模式。
type ContentMode string

const (
	ContentMarkdown ContentMode = "markdown"
	ContentRaw      ContentMode = "raw"
)

// ParseContentMode 解析显示模式。
func ParseContentMode(v string) (ContentMode, error) {
	switch m := ContentMode(strings.ToLower(strings.TrimSpace(v))); m {
	case ContentMarkdown, ContentRaw:
		return m, nil
	}
	return "", errors.ErrInvalidContentMode.WithMessagef("Unknown content mode %q", v)
}

// 成功提示
const (
	MsgNoChanges          = "No changes to save."
	MsgArtifactUpdated    = "Artifact updated."
	MsgArtifactApproved   = "Artifact approved."
	MsgArtifactDeprecated = "Artifact deprecated."
)

// ArtifactSession 单个制品详情视图的状态。
// 同一会话内保存与状态流转各自受忙碌标记保护；每次加载递增代数，过期响应被丢弃。
type ArtifactSession struct {
	mu sync.Mutex

	artifactID       int64
	generation       uint64
	current          *EffectiveArtifact
	mode             ContentMode
	maxContentLength *int

	saving         bool
	changingStatus bool
}

// NewArtifactSession 创建会话：markdown 模式，内容上限 4000。
func NewArtifactSession() *ArtifactSession {
	n := DefaultMaxContentLength
	return &ArtifactSession{mode: ContentMarkdown, maxContentLength: &n}
}

// Artifact 返回当前展示的制品，未加载时为 nil。
func (s *ArtifactSession) Artifact() *EffectiveArtifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	cp := *s.current
	return &cp
}

// Mode 返回显示模式。
func (s *ArtifactSession) Mode() ContentMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode 切换显示模式。
func (s *ArtifactSession) SetMode(m ContentMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
}

// MaxContentLength 返回当前内容上限，nil 表示不限制。
func (s *ArtifactSession) MaxContentLength() *int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyInt(s.maxContentLength)
}

// SetMaxContentLength 设置内容上限，非正数表示不传递上限参数。
func (s *ArtifactSession) SetMaxContentLength(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 {
		s.maxContentLength = nil
		return
	}
	s.maxContentLength = &n
}

// SetMaxContentLengthInput 按用户输入设置内容上限，无效输入表示不传递上限参数。
func (s *ArtifactSession) SetMaxContentLengthInput(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxContentLength = positiveInt(v)
}

// IsDraft 当前制品是否为 DRAFT。
func (s *ArtifactSession) IsDraft() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil && s.current.IsDraft()
}

// CanEdit DRAFT 且处于 raw 模式时允许编辑。
func (s *ArtifactSession) CanEdit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil && s.current.IsDraft() && s.mode == ContentRaw
}

// Busy 返回保存和状态流转是否进行中。
func (s *ArtifactSession) Busy() (saving, changingStatus bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saving, s.changingStatus
}

// ActionResult 保存或状态流转的结果。
type ActionResult struct {
	Artifact  *EffectiveArtifact
	NoChanges bool
	Message   string
}

// ArtifactController 制品详情视图的控制器，本身无状态，可被多个会话共享。
type ArtifactController struct {
	catalog    ArtifactWriter
	reconciler *Reconciler
	metrics    *metrics.Metrics
}

// NewArtifactController 创建控制器，m 可以为 nil。
func NewArtifactController(catalog ArtifactWriter, m *metrics.Metrics) *ArtifactController {
	return &ArtifactController{
		catalog:    catalog,
		reconciler: NewReconciler(catalog, m),
		metrics:    m,
	}
}

// Load 加载制品并自动补全被截断的内容。
func (c *ArtifactController) Load(ctx context.Context, s *ArtifactSession, id int64) (*EffectiveArtifact, error) {
	if id <= 0 {
		return nil, errors.ErrInvalidArtifactID
	}
	return c.load(ctx, s, id, false)
}

// LoadExact 按会话中的上限加载，不自动补全。
func (c *ArtifactController) LoadExact(ctx context.Context, s *ArtifactSession, id int64) (*EffectiveArtifact, error) {
	if id <= 0 {
		return nil, errors.ErrInvalidArtifactID
	}
	return c.load(ctx, s, id, true)
}

// LoadMore 以会话中显式选择的上限重新加载，不自动补全。
func (c *ArtifactController) LoadMore(ctx context.Context, s *ArtifactSession) (*EffectiveArtifact, error) {
	s.mu.Lock()
	id := s.artifactID
	loaded := s.current != nil
	s.mu.Unlock()
	if !loaded {
		return nil, errors.ErrNoArtifactLoaded
	}
	return c.load(ctx, s, id, true)
}

func (c *ArtifactController) load(ctx context.Context, s *ArtifactSession, id int64, skipAutoExpand bool) (*EffectiveArtifact, error) {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.artifactID = id
	opts := LoadOptions{MaxContentLength: copyInt(s.maxContentLength), SkipAutoExpand: skipAutoExpand}
	s.mu.Unlock()

	eff, err := c.reconciler.Load(ctx, id, opts)
	if err != nil {
		return nil, err
	}
	if err := c.commit(s, gen, id, eff); err != nil {
		return nil, err
	}
	return eff, nil
}

// commit 仅在会话仍指向同一代、同一制品时应用响应。
func (c *ArtifactController) commit(s *ArtifactSession, gen uint64, id int64, eff *EffectiveArtifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen || s.artifactID != id {
		c.metrics.IncStale("artifact")
		logger.Debugw("丢弃过期的制品响应",
			"artifact_id", id,
			"generation", gen,
			"current_generation", s.generation,
		)
		return errors.ErrStaleResponse
	}
	s.current = eff
	return nil
}

// Save 提交编辑。无变化时不调用目录服务；非 DRAFT 制品拒绝提交；
// 内容被截断时拒绝修改内容；服务端返回 409 时报告仅 DRAFT 可编辑，本地制品保持不变。
func (c *ArtifactController) Save(ctx context.Context, s *ArtifactSession, edits EditFields) (*ActionResult, error) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return nil, errors.ErrNoArtifactLoaded
	}
	if s.saving {
		s.mu.Unlock()
		return nil, errors.ErrBusy
	}
	if !s.current.IsDraft() {
		s.mu.Unlock()
		c.metrics.IncSave("not_permitted")
		return nil, errors.ErrEditNotPermitted
	}
	if s.mode != ContentRaw {
		s.mu.Unlock()
		return nil, errors.ErrEditRequiresRawMode
	}
	loaded := s.current.Artifact
	req := Diff(&loaded, edits)
	// 截断内容不能作为新内容提交，否则服务端存储会被前缀覆盖
	if req.Content != nil && (loaded.ContentTruncated || s.current.StillTruncated) {
		s.mu.Unlock()
		c.metrics.IncSave("content_incomplete")
		return nil, errors.ErrContentIncomplete
	}
	if req.IsEmpty() {
		cur := *s.current
		s.mu.Unlock()
		c.metrics.IncSave("no_changes")
		return &ActionResult{Artifact: &cur, NoChanges: true, Message: MsgNoChanges}, nil
	}
	s.saving = true
	gen := s.generation
	maxLen := copyInt(s.maxContentLength)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.saving = false
		s.mu.Unlock()
	}()

	updated, err := c.catalog.PatchArtifact(ctx, loaded.ID, req, maxLen)
	if err != nil {
		var apiErr *httpclient.APIError
		if errors.As(err, &apiErr) && apiErr.IsConflict() {
			c.metrics.IncSave("conflict")
			logger.Warnw("制品已不是 DRAFT，保存被拒绝",
				"artifact_id", loaded.ID,
				"server_message", apiErr.Message,
			)
			return nil, errors.ErrDraftOnlyEdit.WithCause(err)
		}
		c.metrics.IncSave("error")
		return nil, err
	}

	eff, err := c.reconciler.Reconcile(ctx, updated, false)
	if err != nil {
		c.metrics.IncSave("error")
		return nil, err
	}
	if err := c.commit(s, gen, loaded.ID, eff); err != nil {
		return nil, err
	}

	c.metrics.IncSave("updated")
	logger.Infow("制品已更新",
		"artifact_id", eff.ID,
		"version", eff.Version,
	)
	return &ActionResult{Artifact: eff, Message: MsgArtifactUpdated}, nil
}

// Approve 审批当前制品并重新加载权威状态。
func (c *ArtifactController) Approve(ctx context.Context, s *ArtifactSession) (*ActionResult, error) {
	return c.transition(ctx, s, "approve", c.catalog.ApproveArtifact, MsgArtifactApproved)
}

// Deprecate 废弃当前制品并重新加载权威状态。
func (c *ArtifactController) Deprecate(ctx context.Context, s *ArtifactSession) (*ActionResult, error) {
	return c.transition(ctx, s, "deprecate", c.catalog.DeprecateArtifact, MsgArtifactDeprecated)
}

type transitionFunc func(ctx context.Context, id int64, maxContentLength *int) (*model.Artifact, error)

func (c *ArtifactController) transition(ctx context.Context, s *ArtifactSession, action string, fn transitionFunc, msg string) (*ActionResult, error) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return nil, errors.ErrNoArtifactLoaded
	}
	if s.changingStatus {
		s.mu.Unlock()
		return nil, errors.ErrBusy
	}
	s.changingStatus = true
	id := s.current.ID
	gen := s.generation
	maxLen := copyInt(s.maxContentLength)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.changingStatus = false
		s.mu.Unlock()
	}()

	// 服务端的拒绝原样返回；响应体不可信，成功后总是重新加载
	if _, err := fn(ctx, id, maxLen); err != nil {
		c.metrics.IncTransition(action, "rejected")
		return nil, err
	}

	eff, err := c.reconciler.Load(ctx, id, LoadOptions{MaxContentLength: maxLen})
	if err != nil {
		c.metrics.IncTransition(action, "reload_failed")
		return nil, err
	}
	if err := c.commit(s, gen, id, eff); err != nil {
		return nil, err
	}

	c.metrics.IncTransition(action, "ok")
	logger.Infow("制品状态已变更",
		"artifact_id", id,
		"action", action,
		"status", eff.Status,
	)
	return &ActionResult{Artifact: eff, Message: msg}, nil
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
