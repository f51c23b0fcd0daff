package biz

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/kart-io/logger"

	"github.com/kart-io/catalog-console/internal/catalog/metrics"
	"github.com/kart-io/catalog-console/internal/model"
	"github.com/kart-io/catalog-console/pkg/errors"
)

const (
	// MaxTopK 单次搜索返回条数上限。
	MaxTopK = 20
	// DefaultTopK 搜索表单的默认条数。
	DefaultTopK = 5
	// DefaultSnippetLength 搜索表单的默认片段长度。
	DefaultSnippetLength = 240
	// Unavailable 空值字段的展示文本。
	Unavailable = "unavailable"
)

// SearchForm 用户填写的搜索表单，数值字段保持原始输入。
type SearchForm struct {
	ProjectID        string
	Query            string
	Status           string
	Type             string
	Mode             string
	TopK             string
	MaxSnippetLength string
}

// NewSearchForm 返回新搜索的默认表单：状态 APPROVED，模式由服务端决定。
func NewSearchForm(projectID string) SearchForm {
	return SearchForm{
		ProjectID:        projectID,
		Status:           string(model.StatusApproved),
		TopK:             strconv.Itoa(DefaultTopK),
		MaxSnippetLength: strconv.Itoa(DefaultSnippetLength),
	}
}

// ClampTopK 将 topK 限制在 [1, MaxTopK]；非有限值或非正数返回 nil，由服务端使用默认值。
func ClampTopK(v float64) *int {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return nil
	}
	n := int(math.Min(math.Max(math.Floor(v), 1), MaxTopK))
	return &n
}

// SnippetLength 正数原样传递，否则返回 nil。
func SnippetLength(v float64) *int {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return nil
	}
	n := int(math.Min(v, math.MaxInt32))
	return &n
}

// SearchNormalizer 将搜索表单转换为网关参数，并将结果转换为统一的展示模型。
type SearchNormalizer struct{}

// Normalize 校验并规范化搜索表单。query 始终发送，即使为空串。
func (SearchNormalizer) Normalize(f SearchForm) (model.SearchArtifactsParams, error) {
	projectID, ok := parseID(f.ProjectID)
	if !ok {
		return model.SearchArtifactsParams{}, errors.ErrSearchProjectRequired
	}

	p := model.SearchArtifactsParams{
		ProjectID: projectID,
		Query:     f.Query,
	}

	status := model.StatusApproved
	if strings.TrimSpace(f.Status) != "" {
		s, ok := model.ParseArtifactStatus(f.Status)
		if !ok {
			return model.SearchArtifactsParams{}, errors.ErrInvalidStatus.WithMessagef("Unknown artifact status %q", f.Status)
		}
		status = s
	}
	p.Status = &status

	if t := strings.TrimSpace(f.Type); t != "" {
		p.Type = &t
	}

	mode, ok := model.ParseSearchMode(f.Mode)
	if !ok {
		return model.SearchArtifactsParams{}, errors.ErrInvalidSearchMode.WithMessagef("Unknown search mode %q", f.Mode)
	}
	if mode != "" {
		p.Mode = &mode
	}

	if v, ok := parseFloat(f.TopK); ok {
		p.TopK = ClampTopK(v)
	}
	if v, ok := parseFloat(f.MaxSnippetLength); ok {
		p.MaxSnippetLength = SnippetLength(v)
	}
	return p, nil
}

func parseFloat(v string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return f, err == nil
}

// ResultItem 单条搜索结果的展示模型。
type ResultItem struct {
	Key              string
	ID               int64
	Title            string
	Snippet          string
	Status           model.ArtifactStatus
	MatchType        model.MatchType
	Score            string
	SectionID        string
	SnippetLength    int
	SnippetTruncated bool
	SnippetNote      string
}

// Item 将搜索结果转换为展示模型。score 与 sectionId 为空时显示 unavailable，
// 与匹配类型无关。
func (SearchNormalizer) Item(it model.SearchResultItem) ResultItem {
	section := "na"
	sectionText := Unavailable
	if it.SectionID != nil {
		section = strconv.FormatInt(*it.SectionID, 10)
		sectionText = section
	}

	score := Unavailable
	if it.Score != nil && !math.IsNaN(*it.Score) && !math.IsInf(*it.Score, 0) {
		score = strconv.FormatFloat(*it.Score, 'f', 4, 64)
	}

	note := "Full snippet shown"
	if it.SnippetTruncated {
		note = "Snippet was truncated"
	}

	return ResultItem{
		Key:              fmt.Sprintf("%d-%s", it.ID, section),
		ID:               it.ID,
		Title:            it.Title,
		Snippet:          it.Snippet,
		Status:           it.Status,
		MatchType:        it.MatchType,
		Score:            score,
		SectionID:        sectionText,
		SnippetLength:    it.SnippetLength,
		SnippetTruncated: it.SnippetTruncated,
		SnippetNote:      note,
	}
}

// Items 批量转换搜索结果。
func (n SearchNormalizer) Items(items []model.SearchResultItem) []ResultItem {
	out := make([]ResultItem, 0, len(items))
	for _, it := range items {
		out = append(out, n.Item(it))
	}
	return out
}

// SearchSession 搜索视图状态。出错时清空结果；项目 ID 在两次搜索间保留。
type SearchSession struct {
	mu         sync.Mutex
	generation uint64
	projectID  string
	results    []ResultItem
	searching  bool
}

// NewSearchSession 创建搜索会话。
func NewSearchSession(projectID string) *SearchSession {
	return &SearchSession{projectID: projectID}
}

// ProjectID 返回上次搜索使用的项目 ID。
func (s *SearchSession) ProjectID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projectID
}

// Results 返回当前结果。
func (s *SearchSession) Results() []ResultItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ResultItem(nil), s.results...)
}

// Searching 是否有搜索在进行中。
func (s *SearchSession) Searching() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searching
}

// Searcher 执行搜索并维护会话状态。
type Searcher struct {
	catalog    ArtifactSearcher
	normalizer SearchNormalizer
	metrics    *metrics.Metrics
}

// NewSearcher 创建搜索器，m 可以为 nil。
func NewSearcher(catalog ArtifactSearcher, m *metrics.Metrics) *Searcher {
	return &Searcher{catalog: catalog, metrics: m}
}

// Search 执行一次搜索。表单校验失败时不发起请求；较新的搜索覆盖较旧的响应。
func (sr *Searcher) Search(ctx context.Context, s *SearchSession, f SearchForm) ([]ResultItem, error) {
	params, err := sr.normalizer.Normalize(f)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.projectID = strings.TrimSpace(f.ProjectID)
	s.searching = true
	s.mu.Unlock()

	items, err := sr.catalog.SearchArtifacts(ctx, params)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		sr.metrics.IncStale("search")
		return nil, errors.ErrStaleResponse
	}
	s.searching = false
	if err != nil {
		s.results = nil
		return nil, err
	}

	s.results = sr.normalizer.Items(items)
	logger.Debugw("搜索完成",
		"project_id", params.ProjectID,
		"query", params.Query,
		"results", len(s.results),
	)
	return append([]ResultItem(nil), s.results...), nil
}
