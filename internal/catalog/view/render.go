package view

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kart-io/catalog-console/internal/catalog/biz"
	"github.com/kart-io/catalog-console/internal/model"
)

// StillTruncatedNotice is shown when the automatic full load did not return
// the whole content.
const StillTruncatedNotice = "Content is still truncated after automatic full-load attempt. " +
	"Request a larger max content length to load more."

// Artifact writes the detail view of an artifact in the given content mode.
func (p *Printer) Artifact(a *biz.EffectiveArtifact, mode biz.ContentMode) error {
	if a == nil {
		return p.write(p.faint("No artifact loaded.") + "\n")
	}

	var b strings.Builder
	b.WriteString(p.heading(a.Title) + " " + p.StatusBadge(a.Status) + "\n")
	b.WriteString(meta(
		"ID", strconv.FormatInt(a.ID, 10),
		"Project", strconv.FormatInt(a.ProjectID, 10),
		"Type", a.Type,
		"Version", strconv.FormatInt(a.Version, 10),
	) + "\n")

	length := fmt.Sprintf("%d chars", a.ContentLength)
	if a.ContentTruncated {
		length += " (truncated)"
	}
	b.WriteString(meta("Updated at", formatTime(a.UpdatedAt), "Content", length) + "\n")

	if a.StillTruncated {
		b.WriteString(p.style().Foreground(p.theme.Error).Render(StillTruncatedNotice) + "\n")
	}

	b.WriteString(p.faint(fmt.Sprintf("--- %s ---", mode)) + "\n")
	switch mode {
	case biz.ContentRaw:
		b.WriteString(a.Content)
	default:
		b.WriteString(p.MarkdownText(a.Content))
	}
	b.WriteString("\n")
	return p.write(b.String())
}

func formatTime(t model.Timestamp) string {
	if t.IsZero() {
		return "-"
	}
	return t.String()
}

// SearchResults writes normalized search results.
func (p *Printer) SearchResults(items []biz.ResultItem) error {
	if len(items) == 0 {
		return p.write(p.faint("No search results.") + "\n")
	}

	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(p.heading(it.Title) + " " + p.StatusBadge(it.Status) + "\n")
		if it.Snippet != "" {
			b.WriteString("  " + strings.ReplaceAll(it.Snippet, "\n", "\n  ") + "\n")
		}
		b.WriteString("  " + p.faint(meta(
			"Artifact", "#"+strconv.FormatInt(it.ID, 10),
			"Match", string(it.MatchType),
			"Score", it.Score,
			"Section", it.SectionID,
			"Snippet len", strconv.Itoa(it.SnippetLength),
		)+"  "+it.SnippetNote) + "\n")
	}
	return p.write(b.String())
}

// Projects writes a project table.
func (p *Printer) Projects(projects []model.Project) error {
	if len(projects) == 0 {
		return p.write(p.faint("No projects found.") + "\n")
	}

	width := len("ID")
	for _, pr := range projects {
		if n := len(strconv.FormatInt(pr.ID, 10)); n > width {
			width = n
		}
	}

	var b strings.Builder
	b.WriteString(p.heading(fmt.Sprintf("%-*s  %s", width, "ID", "NAME")) + "\n")
	for _, pr := range projects {
		fmt.Fprintf(&b, "%-*d  %s\n", width, pr.ID, pr.Name)
	}
	return p.write(b.String())
}

// Project writes a single project.
func (p *Printer) Project(pr *model.Project) error {
	return p.write(meta("ID", strconv.FormatInt(pr.ID, 10), "Name", pr.Name) + "\n")
}

// ReindexResult writes the counters of a finished reindex.
func (p *Printer) ReindexResult(res *model.ReindexResult) error {
	return p.write(p.reindexResult(res))
}

func (p *Printer) reindexResult(res *model.ReindexResult) string {
	typ := "all"
	if res.Type != nil {
		typ = *res.Type
	}
	return p.heading("Reindex completed") + "\n" + meta(
		"Project", strconv.FormatInt(res.ProjectID, 10),
		"Status", res.Status,
		"Type", typ,
		"Processed", strconv.Itoa(res.Processed),
		"Failed", strconv.Itoa(res.Failed),
	) + "\n"
}

// ReindexOutcomes writes one block per project of a multi-project reindex.
func (p *Printer) ReindexOutcomes(outcomes []biz.ReindexOutcome) error {
	var b strings.Builder
	for i, o := range outcomes {
		if i > 0 {
			b.WriteString("\n")
		}
		if o.Err != nil {
			b.WriteString(p.style().Foreground(p.theme.Error).Render(
				fmt.Sprintf("Project %d: %s", o.ProjectID, biz.UIMessage(o.Err))) + "\n")
			continue
		}
		b.WriteString(p.reindexResult(o.Result))
	}
	return p.write(b.String())
}
