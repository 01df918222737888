package export

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// Style names a paragraph style. The values match the style ids in word/styles.xml.
type Style string

const (
	StyleTitle    Style = "Title"
	StyleHeading1 Style = "Heading1"
	StyleHeading2 Style = "Heading2"
	StyleHeading3 Style = "Heading3"
	StyleNormal   Style = "Normal"
	StyleList     Style = "ListParagraph"
	StyleCode     Style = "Code"
	StyleQuote    Style = "Quote"
	StyleRule     Style = "Rule"
)

// Paragraph is one line of flattened output. Inline formatting is gone.
type Paragraph struct {
	Text  string
	Style Style
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderHTML converts markdown to an HTML fragment. Raw HTML in the source is dropped.
func RenderHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Flatten parses markdown into a flat paragraph sequence. Every source line of
// a paragraph becomes its own Paragraph so numbered question lists keep their layout.
func Flatten(source string) []Paragraph {
	src := []byte(source)
	doc := markdown.Parser().Parse(text.NewReader(src))

	out := make([]Paragraph, 0)
	pendingPrefix := ""
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			for _, line := range inlineLines(node, src) {
				out = append(out, Paragraph{Text: line, Style: headingStyle(node.Level)})
			}
			return ast.WalkSkipChildren, nil
		case *ast.ListItem:
			pendingPrefix = listPrefix(node)
		case *ast.Paragraph, *ast.TextBlock:
			style := blockStyle(node)
			for i, line := range inlineLines(node, src) {
				if i == 0 && pendingPrefix != "" {
					line = pendingPrefix + line
					pendingPrefix = ""
				}
				out = append(out, Paragraph{Text: line, Style: style})
			}
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				out = append(out, Paragraph{Text: strings.TrimRight(string(seg.Value(src)), "\r\n"), Style: StyleCode})
			}
			return ast.WalkSkipChildren, nil
		case *ast.ThematicBreak:
			out = append(out, Paragraph{Style: StyleRule})
		case *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		case *east.TableHeader, *east.TableRow:
			cells := make([]string, 0, node.ChildCount())
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				cells = append(cells, strings.Join(inlineLines(c, src), " "))
			}
			out = append(out, Paragraph{Text: strings.Join(cells, " | "), Style: StyleNormal})
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return out
}

func headingStyle(level int) Style {
	switch level {
	case 1:
		return StyleHeading1
	case 2:
		return StyleHeading2
	default:
		return StyleHeading3
	}
}

func blockStyle(n ast.Node) Style {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.(type) {
		case *ast.ListItem:
			return StyleList
		case *ast.Blockquote:
			return StyleQuote
		}
	}
	return StyleNormal
}

func listPrefix(item *ast.ListItem) string {
	list, ok := item.Parent().(*ast.List)
	if !ok || !list.IsOrdered() {
		return "• "
	}
	index := list.Start
	for s := item.PreviousSibling(); s != nil; s = s.PreviousSibling() {
		index++
	}
	return strconv.Itoa(index) + ". "
}

// inlineLines collects the plain text under n, split at soft and hard line breaks.
func inlineLines(n ast.Node, src []byte) []string {
	var lines []string
	var cur strings.Builder
	var walk func(ast.Node)
	walk = func(node ast.Node) {
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			switch inline := c.(type) {
			case *ast.Text:
				cur.Write(inline.Segment.Value(src))
				if inline.SoftLineBreak() || inline.HardLineBreak() {
					lines = append(lines, cur.String())
					cur.Reset()
				}
			case *ast.String:
				cur.Write(inline.Value)
			case *ast.AutoLink:
				cur.Write(inline.Label(src))
			case *ast.RawHTML:
			case *east.TaskCheckBox:
				if inline.IsChecked {
					cur.WriteString("[x] ")
				} else {
					cur.WriteString("[ ] ")
				}
			default:
				walk(c)
			}
		}
	}
	walk(n)
	if cur.Len() > 0 || len(lines) == 0 {
		lines = append(lines, cur.String())
	}
	return lines
}
