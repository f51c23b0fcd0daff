package biz

import (
	"context"

	"github.com/kart-io/logger"

	"github.com/kart-io/catalog-console/internal/catalog/metrics"
	"github.com/kart-io/catalog-console/internal/model"
	"github.com/kart-io/catalog-console/pkg/errors"
)

// FullContentCeiling 自动补全内容时使用的长度上限。
const FullContentCeiling = 200000

// EffectiveArtifact 协调截断后对外展示的制品。
type EffectiveArtifact struct {
	model.Artifact
	// StillTruncated 全量拉取后内容仍被截断，需调用方显式请求更大的上限。
	StillTruncated bool `json:"stillTruncated"`
	// AutoExpanded 是否发起过全量拉取。
	AutoExpanded bool `json:"autoExpanded"`
}

// LoadOptions 控制一次加载。
type LoadOptions struct {
	// MaxContentLength 首次请求的内容上限，nil 表示使用服务端默认值。
	MaxContentLength *int
	// SkipAutoExpand 调用方已显式指定上限（如 "加载更多"），不再自动补全。
	SkipAutoExpand bool
}

// Reconciler 负责制品内容的截断协调。
// 每次加载最多追加一次全量拉取，不会循环追赶截断。
type Reconciler struct {
	fetcher ArtifactFetcher
	metrics *metrics.Metrics
}

// NewReconciler 创建协调器，m 可以为 nil。
func NewReconciler(fetcher ArtifactFetcher, m *metrics.Metrics) *Reconciler {
	return &Reconciler{fetcher: fetcher, metrics: m}
}

// Load 按调用方的上限获取制品并协调截断。
func (r *Reconciler) Load(ctx context.Context, id int64, opts LoadOptions) (*EffectiveArtifact, error) {
	raw, err := r.fetcher.GetArtifact(ctx, id, opts.MaxContentLength)
	if err != nil {
		return nil, err
	}
	return r.Reconcile(ctx, raw, opts.SkipAutoExpand)
}

// Reconcile 对已获取的制品（如保存、创建的响应）执行截断协调。
func (r *Reconciler) Reconcile(ctx context.Context, raw *model.Artifact, skipAutoExpand bool) (*EffectiveArtifact, error) {
	if err := r.check(raw); err != nil {
		return nil, err
	}
	if !raw.ContentTruncated || skipAutoExpand {
		return &EffectiveArtifact{Artifact: *raw}, nil
	}

	logger.Debugw("制品内容被截断，拉取全量内容",
		"artifact_id", raw.ID,
		"returned", raw.ReturnedLength(),
		"content_length", raw.ContentLength,
	)
	r.metrics.IncExpansion()

	ceiling := FullContentCeiling
	full, err := r.fetcher.GetArtifact(ctx, raw.ID, &ceiling)
	if err != nil {
		return nil, err
	}
	if err := r.check(full); err != nil {
		return nil, err
	}

	eff := &EffectiveArtifact{
		Artifact:       *full,
		AutoExpanded:   true,
		StillTruncated: full.ContentTruncated,
	}
	if eff.StillTruncated {
		r.metrics.IncStillTruncated()
		logger.Warnw("全量拉取后内容仍被截断",
			"artifact_id", full.ID,
			"content_length", full.ContentLength,
			"ceiling", ceiling,
		)
	}
	return eff, nil
}

func (r *Reconciler) check(a *model.Artifact) error {
	if a == nil {
		return errors.ErrEmptyResponse
	}
	if !a.Consistent() {
		r.metrics.IncInconsistent()
		return errors.ErrInconsistentArtifact.WithMessagef(
			"artifact %d: returned %d of %d characters, truncated=%t",
			a.ID, a.ReturnedLength(), a.ContentLength, a.ContentTruncated)
	}
	return nil
}
