package biz

import (
	"context"
	"strings"
	"sync"

	"github.com/kart-io/logger"

	"github.com/kart-io/catalog-console/internal/catalog/metrics"
	"github.com/kart-io/catalog-console/internal/model"
	"github.com/kart-io/catalog-console/pkg/errors"
	"github.com/kart-io/catalog-console/pkg/validator"
)

// ProjectsSession 项目列表视图状态。
type ProjectsSession struct {
	mu         sync.Mutex
	generation uint64
	filter     string
	projects   []model.Project
	submitting bool
}

// NewProjectsSession 创建项目列表会话。
func NewProjectsSession() *ProjectsSession {
	return &ProjectsSession{}
}

// Filter 返回当前名称过滤条件。
func (s *ProjectsSession) Filter() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// Projects 返回当前列表。
func (s *ProjectsSession) Projects() []model.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Project(nil), s.projects...)
}

// ProjectService 项目列表、创建和详情。
type ProjectService struct {
	store   ProjectStore
	metrics *metrics.Metrics
}

// NewProjectService 创建项目服务，m 可以为 nil。
func NewProjectService(store ProjectStore, m *metrics.Metrics) *ProjectService {
	return &ProjectService{store: store, metrics: m}
}

// List 按名称过滤项目，空白过滤条件不传递 name 参数。
func (ps *ProjectService) List(ctx context.Context, s *ProjectsSession, filter string) ([]model.Project, error) {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.filter = filter
	s.mu.Unlock()

	var prefix *string
	if v := strings.TrimSpace(filter); v != "" {
		prefix = &v
	}
	projects, err := ps.store.ListProjects(ctx, prefix)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		ps.metrics.IncStale("projects")
		return nil, errors.ErrStaleResponse
	}
	s.projects = projects
	return append([]model.Project(nil), projects...), nil
}

// Create 创建项目后按当前过滤条件刷新列表。
func (ps *ProjectService) Create(ctx context.Context, s *ProjectsSession, name string) (*model.Project, error) {
	req := model.CreateProjectRequest{Name: strings.TrimSpace(name)}
	if verrs := validator.StructWithLang(req, validator.LangEN); verrs.HasErrors() {
		return nil, errors.ErrProjectNameRequired
	}

	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return nil, errors.ErrBusy
	}
	s.submitting = true
	filter := s.filter
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.submitting = false
		s.mu.Unlock()
	}()

	p, err := ps.store.CreateProject(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	logger.Infow("项目已创建", "project_id", p.ID, "name", p.Name)

	if _, err := ps.List(ctx, s, filter); err != nil && !errors.Is(err, errors.ErrStaleResponse) {
		return p, err
	}
	return p, nil
}

// Get 按用户输入的 ID 获取项目。
func (ps *ProjectService) Get(ctx context.Context, rawID string) (*model.Project, error) {
	id, err := ParseProjectID(rawID)
	if err != nil {
		return nil, err
	}
	return ps.store.GetProject(ctx, id)
}
