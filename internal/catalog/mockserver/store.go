package mockserver

import (
	"errors"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/kart-io/catalog-console/internal/model"
)

var (
	errNotFound = errors.New("not found")
	errConflict = errors.New("conflict")
)

// store 内存中的目录数据，所有方法并发安全。
type store struct {
	mu        sync.Mutex
	projects  map[int64]model.Project
	artifacts map[int64]model.Artifact
	nextProj  int64
	nextArt   int64
	now       func() time.Time
}

func newStore(now func() time.Time) *store {
	return &store{
		projects:  make(map[int64]model.Project),
		artifacts: make(map[int64]model.Artifact),
		now:       now,
	}
}

func (s *store) listProjects(prefix string) []model.Project {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix = strings.ToLower(prefix)
	out := make([]model.Project, 0, len(s.projects))
	for _, p := range s.projects {
		if strings.HasPrefix(strings.ToLower(p.Name), prefix) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *store) createProject(name string) model.Project {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextProj++
	p := model.Project{ID: s.nextProj, Name: name}
	s.projects[p.ID] = p
	return p
}

func (s *store) getProject(id int64) (model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[id]
	if !ok {
		return model.Project{}, errNotFound
	}
	return p, nil
}

func (s *store) createArtifact(req model.CreateArtifactRequest) (model.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[req.ProjectID]; !ok {
		return model.Artifact{}, errNotFound
	}
	s.nextArt++
	a := model.Artifact{
		ID:        s.nextArt,
		ProjectID: req.ProjectID,
		Type:      req.Type,
		Title:     req.Title,
		Content:   req.Content,
		Status:    model.StatusDraft,
		Version:   1,
		UpdatedAt: model.NewTimestamp(s.now()),
	}
	s.artifacts[a.ID] = a
	return a, nil
}

func (s *store) getArtifact(id int64) (model.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.artifacts[id]
	if !ok {
		return model.Artifact{}, errNotFound
	}
	return a, nil
}

func (s *store) patchArtifact(id int64, req model.UpdateArtifactRequest) (model.Artifact, error) {
	return s.mutate(id, func(a *model.Artifact) error {
		if a.Status != model.StatusDraft {
			return errConflict
		}
		if req.Type != nil {
			a.Type = *req.Type
		}
		if req.Title != nil {
			a.Title = *req.Title
		}
		if req.Content != nil {
			a.Content = *req.Content
		}
		return nil
	})
}

// transition 只允许 from -> to 的单向状态迁移。
func (s *store) transition(id int64, from, to model.ArtifactStatus) (model.Artifact, error) {
	return s.mutate(id, func(a *model.Artifact) error {
		if a.Status != from {
			return errConflict
		}
		a.Status = to
		return nil
	})
}

func (s *store) setStatus(id int64, status model.ArtifactStatus) error {
	_, err := s.mutate(id, func(a *model.Artifact) error {
		a.Status = status
		return nil
	})
	return err
}

func (s *store) mutate(id int64, fn func(a *model.Artifact) error) (model.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.artifacts[id]
	if !ok {
		return model.Artifact{}, errNotFound
	}
	if err := fn(&a); err != nil {
		return model.Artifact{}, err
	}
	a.Version++
	a.UpdatedAt = model.NewTimestamp(s.now())
	s.artifacts[id] = a
	return a, nil
}

// filter 按项目、状态和类型筛选制品，结果按 ID 排序。
func (s *store) filter(projectID int64, status model.ArtifactStatus, typ string) []model.Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Artifact
	for _, a := range s.artifacts {
		if a.ProjectID != projectID {
			continue
		}
		if status != "" && a.Status != status {
			continue
		}
		if typ != "" && a.Type != typ {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type searchRequest struct {
	projectID  int64
	query      string
	status     model.ArtifactStatus
	typ        string
	mode       model.SearchMode
	topK       int
	maxSnippet int
}

// search 模拟三种检索模式：
//   - LIKE: 标题或内容包含查询串（忽略大小写），无分数
//   - VECTOR: 按段落计算词项重叠度，返回分数和段落编号
//   - HYBRID 或未指定: LIKE 结果在前，补充未命中的 VECTOR 结果
func (s *store) search(req searchRequest) []model.SearchResultItem {
	candidates := s.filter(req.projectID, req.status, req.typ)

	var items []model.SearchResultItem
	seen := make(map[int64]bool)

	if req.mode != model.SearchModeVector {
		needle := strings.ToLower(req.query)
		for _, a := range candidates {
			if needle != "" &&
				!strings.Contains(strings.ToLower(a.Title), needle) &&
				!strings.Contains(strings.ToLower(a.Content), needle) {
				continue
			}
			seen[a.ID] = true
			items = append(items, likeItem(a, needle, req.maxSnippet))
		}
	}

	if req.mode != model.SearchModeLike && strings.TrimSpace(req.query) != "" {
		var vec []model.SearchResultItem
		for _, a := range candidates {
			if seen[a.ID] {
				continue
			}
			if item, ok := vectorItem(a, req.query, req.maxSnippet); ok {
				vec = append(vec, item)
			}
		}
		sort.SliceStable(vec, func(i, j int) bool { return *vec[i].Score > *vec[j].Score })
		items = append(items, vec...)
	}

	if len(items) > req.topK {
		items = items[:req.topK]
	}
	return items
}

func likeItem(a model.Artifact, needle string, maxSnippet int) model.SearchResultItem {
	source := a.Content
	lower := strings.ToLower(source)
	// 大小写转换不改变字节长度时，片段从命中位置开始
	if idx := strings.Index(lower, needle); needle != "" && idx > 0 && len(lower) == len(source) {
		source = source[idx:]
	}
	return snippetItem(a, source, maxSnippet, model.MatchLike, nil, nil)
}

func vectorItem(a model.Artifact, query string, maxSnippet int) (model.SearchResultItem, bool) {
	q := tokens(query)
	best, bestIdx := 0.0, -1
	paragraphs := strings.Split(a.Content, "\n\n")
	for i, p := range paragraphs {
		if score := overlap(q, tokens(p)); score > best {
			best, bestIdx = score, i
		}
	}
	if bestIdx < 0 {
		return model.SearchResultItem{}, false
	}

	score := math.Round(best*10000) / 10000
	var section *int64
	// 只有多段落内容才能定位到具体段落
	if len(paragraphs) > 1 {
		sid := int64(bestIdx + 1)
		section = &sid
	}
	return snippetItem(a, paragraphs[bestIdx], maxSnippet, model.MatchVector, &score, section), true
}

func snippetItem(a model.Artifact, source string, maxSnippet int, mt model.MatchType, score *float64, section *int64) model.SearchResultItem {
	n := model.TextLength(source)
	snippet := model.TruncateText(source, maxSnippet)
	return model.SearchResultItem{
		ID:               a.ID,
		Title:            a.Title,
		Snippet:          snippet,
		Status:           a.Status,
		SnippetTruncated: model.TextLength(snippet) < n,
		SnippetLength:    n,
		MatchType:        mt,
		Score:            score,
		SectionID:        section,
	}
}

func tokens(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, f := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		out[f] = struct{}{}
	}
	return out
}

// overlap 计算 Jaccard 相似度。
func overlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}
