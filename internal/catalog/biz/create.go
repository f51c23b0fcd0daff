package biz

import (
	"context"
	"fmt"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/catalog-console/internal/model"
	"github.com/kart-io/catalog-console/pkg/errors"
	"github.com/kart-io/catalog-console/pkg/validator"
)

// CreateArtifactForm 新建制品表单。
type CreateArtifactForm struct {
	ProjectID string
	Type      string
	Title     string
	Content   string
}

// CreateResult 新建制品的结果。
type CreateResult struct {
	Artifact *EffectiveArtifact
	Message  string
}

// ArtifactCreator 新建制品，字段去除首尾空白，结果固定为 DRAFT。
type ArtifactCreator struct {
	catalog    ArtifactWriter
	reconciler *Reconciler
}

// NewArtifactCreator 创建 ArtifactCreator。
func NewArtifactCreator(catalog ArtifactWriter, reconciler *Reconciler) *ArtifactCreator {
	return &ArtifactCreator{catalog: catalog, reconciler: reconciler}
}

// BuildRequest 校验表单并生成请求，校验失败时不会发起网络请求。
func BuildRequest(f CreateArtifactForm) (model.CreateArtifactRequest, error) {
	// 无效的项目 ID 解析为 0，由 gt=0 规则拒绝
	projectID, _ := parseID(f.ProjectID)
	req := model.CreateArtifactRequest{
		ProjectID: projectID,
		Type:      strings.TrimSpace(f.Type),
		Title:     strings.TrimSpace(f.Title),
		Content:   strings.TrimSpace(f.Content),
	}
	if verrs := validator.StructWithLang(req, validator.LangEN); verrs.HasErrors() {
		if verrs.Failed("projectId") {
			return model.CreateArtifactRequest{}, errors.ErrProjectRequired
		}
		return model.CreateArtifactRequest{}, errors.ErrInvalidArtifact.WithMessage(verrs.First())
	}
	return req, nil
}

// Create 创建制品。maxContentLength 控制响应回显的内容长度。
func (c *ArtifactCreator) Create(ctx context.Context, f CreateArtifactForm, maxContentLength *int) (*CreateResult, error) {
	req, err := BuildRequest(f)
	if err != nil {
		return nil, err
	}

	created, err := c.catalog.CreateArtifact(ctx, req, maxContentLength)
	if err != nil {
		return nil, err
	}
	eff, err := c.reconciler.Reconcile(ctx, created, false)
	if err != nil {
		return nil, err
	}

	logger.Infow("制品已创建",
		"artifact_id", eff.ID,
		"project_id", eff.ProjectID,
		"status", eff.Status,
	)
	return &CreateResult{
		Artifact: eff,
		Message:  fmt.Sprintf("Artifact #%d created as DRAFT.", eff.ID),
	}, nil
}
