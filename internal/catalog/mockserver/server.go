// Package mockserver provides an in-memory catalog service.
//
// It implements the catalog HTTP API with the backend's observable rules:
// content truncation by maxContentLength, DRAFT-only edits answered with 409,
// one-way approve/deprecate transitions and LIKE/VECTOR/HYBRID search. It
// backs the package tests and the mock-server command.
package mockserver

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/catalog-console/internal/model"
	"github.com/kart-io/catalog-console/pkg/utils/httpclient"
)

const (
	defaultTopK         = 10
	defaultSnippet      = 200
	defaultReindexLimit = 100
)

// Call is one request received by the server.
type Call struct {
	Method string
	Path   string
	Query  url.Values
	Body   bool
}

// Server is a fake catalog service.
type Server struct {
	engine *gin.Engine
	store  *store
	prefix string

	metrics http.Handler

	mu    sync.Mutex
	calls []Call
}

// Option configures a Server.
type Option func(*Server)

// WithPrefix mounts the API under prefix. Default "/api".
func WithPrefix(prefix string) Option {
	return func(s *Server) {
		s.prefix = "/" + strings.Trim(prefix, "/")
		if s.prefix == "/" {
			s.prefix = ""
		}
	}
}

// WithClock overrides the clock used for updatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.store.now = now
	}
}

// WithMetrics serves h on GET /metrics outside the API prefix.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// New creates a Server.
func New(opts ...Option) *Server {
	s := &Server{
		store:  newStore(time.Now),
		prefix: "/api",
	}
	for _, opt := range opts {
		opt(s)
	}

	gin.SetMode(gin.ReleaseMode)
	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), s.record)
	s.register(s.engine.Group(s.prefix))
	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.metrics))
	}
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Calls returns the requests received so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// ResetCalls clears the request log.
func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// SetStatus changes an artifact's status as another actor would.
func (s *Server) SetStatus(id int64, status model.ArtifactStatus) error {
	return s.store.setStatus(id, status)
}

// Seed creates a project when projectID is 0, then a DRAFT artifact in it.
func (s *Server) Seed(projectID int64, typ, title, content string) (model.Artifact, error) {
	if projectID == 0 {
		projectID = s.store.createProject("seed").ID
	}
	return s.store.createArtifact(model.CreateArtifactRequest{
		ProjectID: projectID,
		Type:      typ,
		Title:     title,
		Content:   content,
	})
}

func (s *Server) record(c *gin.Context) {
	s.mu.Lock()
	s.calls = append(s.calls, Call{
		Method: c.Request.Method,
		Path:   strings.TrimPrefix(c.Request.URL.Path, s.prefix),
		Query:  c.Request.URL.Query(),
		Body:   c.Request.ContentLength > 0,
	})
	s.mu.Unlock()

	logger.Debugw("mock catalog request",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"query", c.Request.URL.RawQuery,
	)
	c.Next()
}

func (s *Server) register(r *gin.RouterGroup) {
	r.GET("/projects", s.listProjects)
	r.POST("/projects", s.createProject)
	r.GET("/projects/:id", s.getProject)

	r.GET("/artifacts/search", s.searchArtifacts)
	r.POST("/artifacts", s.createArtifact)
	r.GET("/artifacts/:id", s.getArtifact)
	r.PATCH("/artifacts/:id", s.patchArtifact)
	r.POST("/artifacts/:id/approve", s.transition(model.StatusDraft, model.StatusApproved))
	r.POST("/artifacts/:id/deprecate", s.transition(model.StatusApproved, model.StatusDeprecated))

	r.POST("/admin/projects/:id/reindex", s.reindex)
}

func (s *Server) listProjects(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.listProjects(c.Query("name")))
}

func (s *Server) createProject(c *gin.Context) {
	var req model.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "Malformed request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(c, http.StatusBadRequest, "name must not be blank")
		return
	}
	c.JSON(http.StatusCreated, s.store.createProject(name))
}

func (s *Server) getProject(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := s.store.getProject(id)
	if err != nil {
		writeError(c, http.StatusNotFound, fmt.Sprintf("Project %d not found", id))
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) searchArtifacts(c *gin.Context) {
	projectID, err := strconv.ParseInt(c.Query("projectId"), 10, 64)
	if err != nil || projectID <= 0 {
		writeError(c, http.StatusBadRequest, "projectId is required")
		return
	}
	if _, err := s.store.getProject(projectID); err != nil {
		writeError(c, http.StatusNotFound, fmt.Sprintf("Project %d not found", projectID))
		return
	}

	status := model.StatusApproved
	if v, present := c.GetQuery("status"); present {
		parsed, ok := model.ParseArtifactStatus(v)
		if !ok {
			writeError(c, http.StatusBadRequest, "Unknown status "+v)
			return
		}
		status = parsed
	}
	mode, ok := model.ParseSearchMode(c.Query("mode"))
	if !ok {
		writeError(c, http.StatusBadRequest, "Unknown mode "+c.Query("mode"))
		return
	}

	c.JSON(http.StatusOK, s.store.search(searchRequest{
		projectID:  projectID,
		query:      c.Query("query"),
		status:     status,
		typ:        c.Query("type"),
		mode:       mode,
		topK:       positiveInt(c.Query("topK"), defaultTopK),
		maxSnippet: positiveInt(c.Query("maxSnippetLength"), defaultSnippet),
	}))
}

func (s *Server) createArtifact(c *gin.Context) {
	var req model.CreateArtifactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "Malformed request body")
		return
	}
	if strings.TrimSpace(req.Type) == "" || strings.TrimSpace(req.Title) == "" {
		writeError(c, http.StatusBadRequest, "type and title must not be blank")
		return
	}
	a, err := s.store.createArtifact(req)
	if err != nil {
		writeError(c, http.StatusNotFound, fmt.Sprintf("Project %d not found", req.ProjectID))
		return
	}
	c.JSON(http.StatusCreated, shape(a, c))
}

func (s *Server) getArtifact(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	a, err := s.store.getArtifact(id)
	if err != nil {
		writeError(c, http.StatusNotFound, fmt.Sprintf("Artifact %d not found", id))
		return
	}
	c.JSON(http.StatusOK, shape(a, c))
}

func (s *Server) patchArtifact(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req model.UpdateArtifactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "Malformed request body")
		return
	}
	a, err := s.store.patchArtifact(id, req)
	if s.writeStoreError(c, id, err) {
		return
	}
	c.JSON(http.StatusOK, shape(a, c))
}

func (s *Server) transition(from, to model.ArtifactStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		a, err := s.store.transition(id, from, to)
		if errors.Is(err, errConflict) {
			writeError(c, http.StatusConflict, fmt.Sprintf("Artifact %d must be %s to become %s", id, from, to))
			return
		}
		if s.writeStoreError(c, id, err) {
			return
		}
		c.JSON(http.StatusOK, shape(a, c))
	}
}

func (s *Server) reindex(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if _, err := s.store.getProject(id); err != nil {
		writeError(c, http.StatusNotFound, fmt.Sprintf("Project %d not found", id))
		return
	}

	status := model.StatusApproved
	if v := c.Query("status"); v != "" {
		parsed, valid := model.ParseArtifactStatus(v)
		if !valid {
			writeError(c, http.StatusBadRequest, "Unknown status "+v)
			return
		}
		status = parsed
	}
	var typ *string
	if v := c.Query("type"); v != "" {
		typ = &v
	}
	limit := positiveInt(c.Query("limit"), defaultReindexLimit)

	matched := s.store.filter(id, status, c.Query("type"))
	processed, failed := 0, 0
	for i, a := range matched {
		if i >= limit {
			break
		}
		// 空内容的制品无法生成向量
		if strings.TrimSpace(a.Content) == "" {
			failed++
			continue
		}
		processed++
	}

	c.JSON(http.StatusOK, model.ReindexResult{
		ProjectID: id,
		Status:    string(status),
		Type:      typ,
		Processed: processed,
		Failed:    failed,
	})
}

func (s *Server) writeStoreError(c *gin.Context, id int64, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, errNotFound):
		writeError(c, http.StatusNotFound, fmt.Sprintf("Artifact %d not found", id))
	case errors.Is(err, errConflict):
		writeError(c, http.StatusConflict, fmt.Sprintf("Artifact %d is not in DRAFT status", id))
	default:
		writeError(c, http.StatusInternalServerError, err.Error())
	}
	return true
}

// shape 按 maxContentLength 截断返回内容，contentLength 始终为完整长度。
func shape(a model.Artifact, c *gin.Context) model.Artifact {
	a.ContentLength = model.TextLength(a.Content)
	limit := positiveInt(c.Query("maxContentLength"), 0)
	if limit > 0 && a.ContentLength > limit {
		a.Content = model.TruncateText(a.Content, limit)
		a.ContentTruncated = true
	}
	return a
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, http.StatusBadRequest, "Invalid id "+c.Param("id"))
		return 0, false
	}
	return id, true
}

func positiveInt(v string, def int) int {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func writeError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, httpclient.APIError{
		Message:   message,
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
