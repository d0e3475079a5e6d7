// Package markdown extracts the "Next steps" list from a template README so
// the initializer's summary matches what the README tells the user.
package markdown

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// NextStepsHeading is the README section the steps are read from.
const NextStepsHeading = "Next steps"

// Step is one item of an ordered "next steps" list.
type Step struct {
	Description string // Item text without code spans, trailing ':' trimmed
	Command     string // First inline code span, if any
}

// StepReader parses README files with goldmark.
type StepReader struct {
	parser goldmark.Markdown
}

// NewStepReader creates a reader with auto heading IDs enabled so TOC items
// can be mapped back to heading nodes.
func NewStepReader() *StepReader {
	md := goldmark.New(
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
	return &StepReader{parser: md}
}

// Steps returns the items of the first list below the heading titled
// heading (case-insensitive). It returns nil, nil when the section is absent.
func (r *StepReader) Steps(source []byte, heading string) ([]Step, error) {
	doc := r.parser.Parser().Parse(text.NewReader(source))

	tree, err := toc.Inspect(doc, source, toc.MinDepth(1), toc.MaxDepth(3), toc.Compact(true))
	if err != nil {
		return nil, fmt.Errorf("inspect TOC: %w", err)
	}

	item := findItem(tree.Items, heading)
	if item == nil {
		return nil, nil
	}

	headerNode := findHeaderByID(doc, string(item.ID))
	if headerNode == nil {
		return nil, nil
	}

	list := firstListInSection(headerNode)
	if list == nil {
		return nil, nil
	}

	var steps []Step
	for li := list.FirstChild(); li != nil; li = li.NextSibling() {
		if li.Kind() != ast.KindListItem {
			continue
		}
		steps = append(steps, stepFromItem(li, source))
	}
	return steps, nil
}

func findItem(items toc.Items, title string) *toc.Item {
	for _, item := range items {
		if strings.EqualFold(strings.TrimSpace(string(item.Title)), title) {
			return item
		}
		if found := findItem(item.Items, title); found != nil {
			return found
		}
	}
	return nil
}

// findHeaderByID locates a heading node by its auto-generated ID.
func findHeaderByID(node ast.Node, id string) *ast.Heading {
	var found *ast.Heading
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && n.Kind() == ast.KindHeading {
			heading := n.(*ast.Heading)
			headingID, ok := heading.AttributeString("id")
			if ok {
				if b, isBytes := headingID.([]byte); isBytes && string(b) == id {
					found = heading
					return ast.WalkStop, nil
				}
			}
		}
		return ast.WalkContinue, nil
	})
	return found
}

// firstListInSection scans siblings after heading until a heading of the
// same or higher level.
func firstListInSection(heading *ast.Heading) *ast.List {
	for n := heading.NextSibling(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok && h.Level <= heading.Level {
			return nil
		}
		if list, ok := n.(*ast.List); ok {
			return list
		}
	}
	return nil
}

func stepFromItem(item ast.Node, source []byte) Step {
	var desc strings.Builder
	var step Step

	ast.Walk(item, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.CodeSpan:
			if step.Command == "" {
				step.Command = plainText(node, source)
			}
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			desc.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				desc.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})

	step.Description = strings.TrimSuffix(strings.TrimSpace(desc.String()), ":")
	return step
}

func plainText(n ast.Node, source []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			b.Write(t.Segment.Value(source))
		}
	}
	return b.String()
}
