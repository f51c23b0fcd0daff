package view

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/x/ansi"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var (
	markdownOnce sync.Once
	markdownInst goldmark.Markdown
)

// markdown returns the shared GFM converter. Raw HTML is never rendered
// because the unsafe renderer option is left off.
func markdown() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownInst = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return markdownInst
}

// MarkdownHTML converts artifact content to HTML with raw HTML omitted.
func MarkdownHTML(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdown().Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// MarkdownText renders artifact content as wrapped terminal text. Raw HTML
// blocks and inline HTML are skipped.
func (p *Printer) MarkdownText(src string) string {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	source := []byte(src)
	doc := markdown().Parser().Parse(text.NewReader(source))

	r := &textRenderer{printer: p, source: source, width: p.width}
	_ = ast.Walk(doc, r.walk)
	return strings.TrimRight(r.out.String(), "\n")
}

type listState struct {
	ordered bool
	next    int
	tight   bool
}

// textRenderer collects inline text per block and flushes it with the
// current prefix when the block closes.
type textRenderer struct {
	printer *Printer
	source  []byte
	width   int

	out    strings.Builder
	inline strings.Builder

	prefixes      []string
	pendingBullet string
	lists         []listState

	row      []string
	inHeader bool
}

func (r *textRenderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		if !entering {
			r.block(r.printer.heading(strings.Repeat("#", node.Level) + " " + r.takeInline()))
		}
	case *ast.Paragraph, *ast.TextBlock:
		if !entering {
			r.block(r.takeInline())
		}
	case *ast.Text:
		if entering {
			r.inline.Write(node.Segment.Value(r.source))
			switch {
			case node.HardLineBreak():
				r.inline.WriteString("\n")
			case node.SoftLineBreak():
				r.inline.WriteString(" ")
			}
		}
	case *ast.String:
		if entering {
			r.inline.Write(node.Value)
		}
	case *ast.CodeSpan:
		r.inline.WriteString("`")
	case *extast.Strikethrough:
		r.inline.WriteString("~~")
	case *extast.TaskCheckBox:
		if entering {
			if node.IsChecked {
				r.inline.WriteString("[x] ")
			} else {
				r.inline.WriteString("[ ] ")
			}
		}
	case *ast.Link:
		if !entering {
			fmt.Fprintf(&r.inline, " (%s)", node.Destination)
		}
	case *ast.AutoLink:
		if entering {
			r.inline.Write(node.URL(r.source))
		}
		return ast.WalkSkipChildren, nil
	case *ast.Image:
		if entering {
			r.inline.WriteString("[image: ")
		} else {
			r.inline.WriteString("]")
		}
	case *ast.RawHTML, *ast.HTMLBlock:
		return ast.WalkSkipChildren, nil
	case *ast.FencedCodeBlock:
		if entering {
			r.code(node.Lines())
		}
		return ast.WalkSkipChildren, nil
	case *ast.CodeBlock:
		if entering {
			r.code(node.Lines())
		}
		return ast.WalkSkipChildren, nil
	case *ast.ThematicBreak:
		if entering {
			r.block("---")
		}
	case *ast.Blockquote:
		if entering {
			r.prefixes = append(r.prefixes, "> ")
		} else {
			r.prefixes = r.prefixes[:len(r.prefixes)-1]
		}
	case *ast.List:
		if entering {
			if r.out.Len() > 0 && !r.inTightList() {
				r.separate()
			}
			r.lists = append(r.lists, listState{ordered: node.IsOrdered(), next: node.Start, tight: node.IsTight})
		} else {
			r.lists = r.lists[:len(r.lists)-1]
		}
	case *ast.ListItem:
		if entering {
			bullet := "- "
			if top := &r.lists[len(r.lists)-1]; top.ordered {
				bullet = fmt.Sprintf("%d. ", top.next)
				top.next++
			}
			r.pendingBullet = bullet
			r.prefixes = append(r.prefixes, strings.Repeat(" ", len(bullet)))
		} else {
			r.prefixes = r.prefixes[:len(r.prefixes)-1]
			r.pendingBullet = ""
		}
	case *extast.TableHeader:
		r.tableRow(entering, true)
	case *extast.TableRow:
		r.tableRow(entering, false)
	case *extast.TableCell:
		if !entering {
			r.row = append(r.row, strings.TrimSpace(r.takeInline()))
		}
	}
	return ast.WalkContinue, nil
}

func (r *textRenderer) takeInline() string {
	s := r.inline.String()
	r.inline.Reset()
	return s
}

func (r *textRenderer) tableRow(entering, header bool) {
	if entering {
		r.row = r.row[:0]
		return
	}
	line := "| " + strings.Join(r.row, " | ") + " |"
	if header {
		seps := make([]string, len(r.row))
		for i := range seps {
			seps[i] = "---"
		}
		line += "\n| " + strings.Join(seps, " | ") + " |"
	}
	r.emit(strings.Split(line, "\n"), r.inTightList() || !header)
}

func (r *textRenderer) code(lines *text.Segments) {
	out := make([]string, 0, lines.Len())
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		out = append(out, "    "+strings.TrimRight(string(seg.Value(r.source)), "\n"))
	}
	r.emit(out, false)
}

// block wraps s to the available width and emits it.
func (r *textRenderer) block(s string) {
	width := r.width - len(strings.Join(r.prefixes, ""))
	if width < 20 {
		width = 20
	}
	var lines []string
	for _, l := range strings.Split(s, "\n") {
		lines = append(lines, strings.Split(ansi.Wordwrap(l, width, ""), "\n")...)
	}
	r.emit(lines, r.inTightList())
}

func (r *textRenderer) inTightList() bool {
	return len(r.lists) > 0 && r.lists[len(r.lists)-1].tight
}

// emit writes lines with the current prefix. Blocks are separated by a
// blank line unless tight is set.
func (r *textRenderer) emit(lines []string, tight bool) {
	if r.out.Len() > 0 && !tight {
		r.separate()
	}
	for i, line := range lines {
		prefix := strings.Join(r.prefixes, "")
		if i == 0 && r.pendingBullet != "" {
			prefix = strings.Join(r.prefixes[:len(r.prefixes)-1], "") + r.pendingBullet
			r.pendingBullet = ""
		}
		r.out.WriteString(strings.TrimRight(prefix+line, " "))
		r.out.WriteString("\n")
	}
}

func (r *textRenderer) separate() {
	if !strings.HasSuffix(r.out.String(), "\n\n") {
		r.out.WriteString("\n")
	}
}
