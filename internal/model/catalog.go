// Package model provides the data models exchanged with the catalog service.
package model

import (
	"strings"
)

// ArtifactStatus is the lifecycle state of an artifact.
type ArtifactStatus string

const (
	StatusDraft      ArtifactStatus = "DRAFT"
	StatusApproved   ArtifactStatus = "APPROVED"
	StatusDeprecated ArtifactStatus = "DEPRECATED"
)

// ArtifactStatuses lists statuses in the order the console offers them.
var ArtifactStatuses = []ArtifactStatus{StatusApproved, StatusDraft, StatusDeprecated}

// Valid reports whether s is a known status.
func (s ArtifactStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusApproved, StatusDeprecated:
		return true
	}
	return false
}

// ParseArtifactStatus parses a case-insensitive status name.
func ParseArtifactStatus(v string) (ArtifactStatus, bool) {
	s := ArtifactStatus(strings.ToUpper(strings.TrimSpace(v)))
	return s, s.Valid()
}

// SearchMode selects the search strategy. The zero value lets the server decide.
type SearchMode string

const (
	SearchModeLike   SearchMode = "LIKE"
	SearchModeVector SearchMode = "VECTOR"
	SearchModeHybrid SearchMode = "HYBRID"
)

// ParseSearchMode parses a case-insensitive mode. An empty string yields the zero mode.
func ParseSearchMode(v string) (SearchMode, bool) {
	m := SearchMode(strings.ToUpper(strings.TrimSpace(v)))
	switch m {
	case "", SearchModeLike, SearchModeVector, SearchModeHybrid:
		return m, true
	}
	return m, false
}

// MatchType tells how a search hit was found.
type MatchType string

const (
	MatchLike   MatchType = "LIKE"
	MatchVector MatchType = "VECTOR"
)

// Project groups artifacts.
type Project struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Artifact is a versioned content record of a project.
//
// ContentLength is the length of the stored content, not of Content, which may be
// truncated by the server to the requested maxContentLength.
type Artifact struct {
	ID               int64          `json:"id"`
	ProjectID        int64          `json:"projectId"`
	Type             string         `json:"type"`
	Title            string         `json:"title"`
	Content          string         `json:"content"`
	Status           ArtifactStatus `json:"status"`
	Version          int64          `json:"version"`
	UpdatedAt        Timestamp      `json:"updatedAt"`
	ContentTruncated bool           `json:"contentTruncated"`
	ContentLength    int            `json:"contentLength"`
}

// IsDraft reports whether the artifact may still be edited.
func (a *Artifact) IsDraft() bool {
	return a != nil && a.Status == StatusDraft
}

// ReturnedLength is the length of Content in the unit the catalog service uses
// for contentLength (UTF-16 code units).
func (a *Artifact) ReturnedLength() int {
	return TextLength(a.Content)
}

// Consistent checks the truncation invariant: the returned content is never
// longer than ContentLength and is exactly as long iff it was not truncated.
func (a *Artifact) Consistent() bool {
	n := a.ReturnedLength()
	if n > a.ContentLength {
		return false
	}
	return (n == a.ContentLength) == !a.ContentTruncated
}

// TextLength returns the UTF-16 length of s.
func TextLength(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// TruncateText returns the longest prefix of s whose UTF-16 length is at most
// n, never splitting a surrogate pair. n <= 0 yields "".
func TruncateText(s string, n int) string {
	if n <= 0 {
		return ""
	}
	used := 0
	for i, r := range s {
		w := 1
		if r >= 0x10000 {
			w = 2
		}
		if used+w > n {
			return s[:i]
		}
		used += w
	}
	return s
}

// SearchResultItem is a single search hit.
// Score and SectionID are independently nullable whatever the MatchType.
type SearchResultItem struct {
	ID               int64          `json:"id"`
	Title            string         `json:"title"`
	Snippet          string         `json:"snippet"`
	Status           ArtifactStatus `json:"status"`
	SnippetTruncated bool           `json:"snippetTruncated"`
	SnippetLength    int            `json:"snippetLength"`
	MatchType        MatchType      `json:"matchType"`
	Score            *float64       `json:"score"`
	SectionID        *int64         `json:"sectionId"`
}

// ReindexResult is the outcome of a reindex run.
type ReindexResult struct {
	ProjectID int64   `json:"projectId"`
	Status    string  `json:"status"`
	Type      *string `json:"type"`
	Processed int     `json:"processed"`
	Failed    int     `json:"failed"`
}

// CreateProjectRequest is the body of POST /projects.
type CreateProjectRequest struct {
	Name string `json:"name" validate:"notblank,trimmed"`
}

// CreateArtifactRequest is the body of POST /artifacts.
type CreateArtifactRequest struct {
	ProjectID int64  `json:"projectId" validate:"gt=0"`
	Type      string `json:"type" validate:"notblank,trimmed"`
	Title     string `json:"title" validate:"notblank,trimmed"`
	Content   string `json:"content" validate:"trimmed"`
}

// UpdateArtifactRequest is the body of PATCH /artifacts/{id}.
// Nil fields are left untouched by the server.
type UpdateArtifactRequest struct {
	Type    *string `json:"type,omitempty"`
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// IsEmpty reports whether the request changes nothing.
func (r UpdateArtifactRequest) IsEmpty() bool {
	return r.Type == nil && r.Title == nil && r.Content == nil
}

// SearchArtifactsParams are the query parameters of GET /artifacts/search.
// Nil pointers are omitted from the request; Query is always sent.
type SearchArtifactsParams struct {
	ProjectID        int64
	Query            string
	Status           *ArtifactStatus
	Type             *string
	Mode             *SearchMode
	TopK             *int
	MaxSnippetLength *int
}

// ReindexParams are the query parameters of POST /admin/projects/{id}/reindex.
type ReindexParams struct {
	Status *ArtifactStatus
	Type   *string
	Limit  *int
}
