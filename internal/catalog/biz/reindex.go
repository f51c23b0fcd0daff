package biz

import (
	"context"
	"strconv"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/catalog-console/internal/catalog/metrics"
	"github.com/kart-io/catalog-console/internal/model"
	"github.com/kart-io/catalog-console/pkg/errors"
	"github.com/kart-io/catalog-console/pkg/infra/pool"
)

// DefaultReindexLimit 重建索引表单的默认条数。
const DefaultReindexLimit = 100

// ReindexForm 重建索引表单，数值字段保持原始输入。
type ReindexForm struct {
	Status string
	Type   string
	Limit  string
}

// NewReindexForm 返回默认表单：APPROVED，100 条。
func NewReindexForm() ReindexForm {
	return ReindexForm{
		Status: string(model.StatusApproved),
		Limit:  strconv.Itoa(DefaultReindexLimit),
	}
}

// Params 规范化表单：空白类型和非正数条数不传递。
func (f ReindexForm) Params() (model.ReindexParams, error) {
	var p model.ReindexParams

	status := model.StatusApproved
	if strings.TrimSpace(f.Status) != "" {
		s, ok := model.ParseArtifactStatus(f.Status)
		if !ok {
			return p, errors.ErrInvalidStatus.WithMessagef("Unknown artifact status %q", f.Status)
		}
		status = s
	}
	p.Status = &status

	if t := strings.TrimSpace(f.Type); t != "" {
		p.Type = &t
	}
	p.Limit = positiveInt(f.Limit)
	return p, nil
}

// ReindexOutcome 单个项目的重建结果，Result 与 Err 二者其一非空。
type ReindexOutcome struct {
	ProjectID int64
	Result    *model.ReindexResult
	Err       error
}

// Reindexer 触发重建索引。多项目时通过工作池并发执行。
type Reindexer struct {
	catalog ProjectReindexer
	pool    *pool.Pool
	metrics *metrics.Metrics
}

// NewReindexer 创建 Reindexer。p 为 nil 时多项目重建顺序执行。
func NewReindexer(catalog ProjectReindexer, p *pool.Pool, m *metrics.Metrics) *Reindexer {
	return &Reindexer{catalog: catalog, pool: p, metrics: m}
}

// Reindex 重建单个项目。
func (r *Reindexer) Reindex(ctx context.Context, rawProjectID string, f ReindexForm) (*model.ReindexResult, error) {
	projectID, ok := parseID(rawProjectID)
	if !ok {
		return nil, errors.ErrProjectRequired
	}
	params, err := f.Params()
	if err != nil {
		return nil, err
	}
	return r.run(ctx, projectID, params)
}

// ReindexMany 重建多个项目，每个项目独立返回结果或错误。
func (r *Reindexer) ReindexMany(ctx context.Context, projectIDs []int64, f ReindexForm) ([]ReindexOutcome, error) {
	if len(projectIDs) == 0 {
		return nil, errors.ErrProjectRequired
	}
	params, err := f.Params()
	if err != nil {
		return nil, err
	}

	outcomes := make([]ReindexOutcome, len(projectIDs))
	tasks := make([]func(ctx context.Context), len(projectIDs))
	for i, id := range projectIDs {
		i, id := i, id
		outcomes[i].ProjectID = id
		tasks[i] = func(ctx context.Context) {
			outcomes[i].Result, outcomes[i].Err = r.run(ctx, id, params)
		}
	}

	if r.pool == nil {
		for _, task := range tasks {
			task(ctx)
		}
		return outcomes, nil
	}

	for i, err := range r.pool.RunAll(ctx, tasks) {
		if err != nil {
			outcomes[i].Err = err
		}
	}
	r.metrics.ObservePool(r.pool.Name(), r.pool.Stats())
	for i := range outcomes {
		if outcomes[i].Result == nil && outcomes[i].Err == nil {
			outcomes[i].Err = errors.ErrInternal.WithMessagef("reindex of project %d produced no result", outcomes[i].ProjectID)
		}
	}
	return outcomes, nil
}

func (r *Reindexer) run(ctx context.Context, projectID int64, params model.ReindexParams) (*model.ReindexResult, error) {
	if projectID <= 0 {
		return nil, errors.ErrProjectRequired
	}
	res, err := r.catalog.ReindexProject(ctx, projectID, params)
	if err != nil {
		logger.Warnw("重建索引失败", "project_id", projectID, "error", err.Error())
		return nil, err
	}
	r.metrics.ObserveReindex(projectID, res.Processed, res.Failed)
	logger.Infow("重建索引完成",
		"project_id", projectID,
		"processed", res.Processed,
		"failed", res.Failed,
	)
	return res, nil
}
