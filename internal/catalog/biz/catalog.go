package biz

import (
	"context"

	"github.com/kart-io/catalog-console/internal/model"
)

// ArtifactFetcher 按内容长度上限获取制品。
type ArtifactFetcher interface {
	GetArtifact(ctx context.Context, id int64, maxContentLength *int) (*model.Artifact, error)
}

// ArtifactWriter 制品写操作。
type ArtifactWriter interface {
	ArtifactFetcher
	CreateArtifact(ctx context.Context, req model.CreateArtifactRequest, maxContentLength *int) (*model.Artifact, error)
	PatchArtifact(ctx context.Context, id int64, req model.UpdateArtifactRequest, maxContentLength *int) (*model.Artifact, error)
	ApproveArtifact(ctx context.Context, id int64, maxContentLength *int) (*model.Artifact, error)
	DeprecateArtifact(ctx context.Context, id int64, maxContentLength *int) (*model.Artifact, error)
}

// ArtifactSearcher 制品搜索。
type ArtifactSearcher interface {
	SearchArtifacts(ctx context.Context, p model.SearchArtifactsParams) ([]model.SearchResultItem, error)
}

// ProjectStore 项目操作。
type ProjectStore interface {
	ListProjects(ctx context.Context, namePrefix *string) ([]model.Project, error)
	CreateProject(ctx context.Context, name string) (*model.Project, error)
	GetProject(ctx context.Context, id int64) (*model.Project, error)
}

// ProjectReindexer 触发项目重建索引。
type ProjectReindexer interface {
	ReindexProject(ctx context.Context, projectID int64, p model.ReindexParams) (*model.ReindexResult, error)
}

// Catalog 汇总目录服务的全部操作，由 gateway.Gateway 实现。
type Catalog interface {
	ArtifactWriter
	ArtifactSearcher
	ProjectStore
	ProjectReindexer
}
