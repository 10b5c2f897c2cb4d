// Copyright 2024-2026 Aiku AI

// Package markup renders Mattermost markdown post content to HTML.
//
// Block structure, code spans, links, images and emoji are parsed by
// Mattermost's own markdown package. That parser has no emphasis or heading
// support, so those spans are applied here to the parsed text nodes.
package markup

import (
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/mattermost/mattermost/server/public/shared/markdown"
	"maunium.net/go/mautrix/event"
)

// Rendered is the HTML rendition of a post.
type Rendered struct {
	// Body is the markdown source.
	Body string
	// Format is event.FormatHTML when HTML is set.
	Format event.Format
	// HTML is empty when the source contains no markup.
	HTML string
}

var (
	strongRe  = regexp.MustCompile(`\*\*(.+?)\*\*`)
	emRe      = regexp.MustCompile(`(^|[^\w*])_(.+?)_($|[^\w*])`)
	delRe     = regexp.MustCompile(`~~(.+?)~~`)
	spoilerRe = regexp.MustCompile(`\|\|(.+?)\|\|`)
	headerRe  = regexp.MustCompile(`^(#{1,6})\s+`)
)

// Render converts Mattermost markdown to HTML. Plain text is returned with
// no HTML.
func Render(text string) *Rendered {
	if !HasMarkup(text) {
		return &Rendered{Body: text}
	}
	doc, refs := markdown.Parse(text)
	r := &renderer{refs: refs}
	return &Rendered{
		Body:   text,
		Format: event.FormatHTML,
		HTML:   r.children(doc.Children, false),
	}
}

// HasMarkup reports whether text contains any markdown Render understands.
// Paragraph breaks, bare URLs and emoji alone are not markup.
func HasMarkup(text string) bool {
	if text == "" {
		return false
	}
	doc, refs := markdown.Parse(text)
	found := false
	markdown.InspectBlock(doc, func(block markdown.Block) bool {
		if found {
			return false
		}
		switch v := block.(type) {
		case nil:
			return false
		case *markdown.Document:
			return true
		case *markdown.Paragraph:
			found = paragraphHasMarkup(v, refs)
			return false
		default:
			found = true
			return false
		}
	})
	return found
}

func paragraphHasMarkup(p *markdown.Paragraph, refs []*markdown.ReferenceDefinition) bool {
	for i, in := range markdown.MergeInlineText(p.ParseInlines(refs)) {
		switch v := in.(type) {
		case *markdown.Text:
			if i == 0 && headerRe.MatchString(v.Text) {
				return true
			}
			for _, re := range []*regexp.Regexp{strongRe, emRe, delRe, spoilerRe} {
				if re.MatchString(v.Text) {
					return true
				}
			}
		case *markdown.SoftLineBreak, *markdown.HardLineBreak, *markdown.Autolink, *markdown.Emoji:
		default:
			return true
		}
	}
	return false
}

type renderer struct {
	refs []*markdown.ReferenceDefinition
}

// children renders sibling blocks. A lone paragraph and paragraphs of a
// tight list are not wrapped in <p>.
func (r *renderer) children(blocks []markdown.Block, tight bool) string {
	visible := blocks[:0:0]
	for _, block := range blocks {
		// Reference definitions leave an empty paragraph behind.
		if p, ok := block.(*markdown.Paragraph); ok && len(p.Text) == 0 {
			continue
		}
		visible = append(visible, block)
	}
	wrap := !tight && len(visible) > 1
	var sb strings.Builder
	for _, block := range visible {
		sb.WriteString(r.block(block, wrap))
	}
	return sb.String()
}

func (r *renderer) block(block markdown.Block, wrap bool) string {
	switch v := block.(type) {
	case *markdown.Paragraph:
		return r.paragraph(v, wrap)
	case *markdown.BlockQuote:
		return "<blockquote>" + r.children(v.Children, false) + "</blockquote>"
	case *markdown.List:
		tag := "ul"
		open := "<ul>"
		if v.IsOrdered {
			tag = "ol"
			open = "<ol>"
			if v.OrderedStart != 1 {
				open = `<ol start="` + strconv.Itoa(v.OrderedStart) + `">`
			}
		}
		var sb strings.Builder
		sb.WriteString(open)
		for _, item := range v.Children {
			sb.WriteString("<li>" + r.children(item.Children, !v.IsLoose) + "</li>")
		}
		sb.WriteString("</" + tag + ">")
		return sb.String()
	case *markdown.FencedCode:
		open := "<pre><code>"
		if info := strings.Fields(v.Info()); len(info) > 0 {
			open = `<pre><code class="language-` + html.EscapeString(info[0]) + `">`
		}
		return open + html.EscapeString(v.Code()) + "</code></pre>"
	case *markdown.IndentedCode:
		return "<pre><code>" + html.EscapeString(v.Code()) + "</code></pre>"
	default:
		return ""
	}
}

// paragraph renders a paragraph whose first line may be a "#" heading.
func (r *renderer) paragraph(p *markdown.Paragraph, wrap bool) string {
	inlines := markdown.MergeInlineText(p.ParseInlines(r.refs))
	var out string
	if level, head, rest, ok := splitHeading(inlines); ok {
		lvl := strconv.Itoa(level)
		out = "<h" + lvl + ">" + r.inlines(head) + "</h" + lvl + ">"
		if len(rest) == 0 {
			return out
		}
		inlines = rest
	}
	body := r.inlines(inlines)
	if wrap {
		body = "<p>" + body + "</p>"
	}
	return out + body
}

// splitHeading separates a leading "# title" line from the rest of a
// paragraph.
func splitHeading(inlines []markdown.Inline) (level int, head, rest []markdown.Inline, ok bool) {
	if len(inlines) == 0 {
		return 0, nil, nil, false
	}
	first, isText := inlines[0].(*markdown.Text)
	if !isText {
		return 0, nil, nil, false
	}
	m := headerRe.FindStringSubmatch(first.Text)
	if m == nil {
		return 0, nil, nil, false
	}
	end := len(inlines)
	for i, in := range inlines {
		switch in.(type) {
		case *markdown.SoftLineBreak, *markdown.HardLineBreak:
			if i < end {
				end = i
			}
		}
	}
	head = append([]markdown.Inline{&markdown.Text{Text: first.Text[len(m[0]):], Range: first.Range}}, inlines[1:end]...)
	if end < len(inlines) {
		rest = inlines[end+1:]
	}
	return len(m[1]), head, rest, true
}

func (r *renderer) inlines(inlines []markdown.Inline) string {
	var sb strings.Builder
	for _, in := range inlines {
		sb.WriteString(r.inline(in))
	}
	return sb.String()
}

func (r *renderer) inline(in markdown.Inline) string {
	switch v := in.(type) {
	case *markdown.Text:
		return spans(v.Text)
	case *markdown.SoftLineBreak, *markdown.HardLineBreak:
		return "<br/>"
	case *markdown.CodeSpan:
		return "<code>" + html.EscapeString(v.Code) + "</code>"
	case *markdown.InlineLink:
		return r.link(v.Destination(), v.Children)
	case *markdown.ReferenceLink:
		return r.link(v.Destination(), v.Children)
	case *markdown.Autolink:
		return r.link(v.Destination(), v.Children)
	case *markdown.InlineImage:
		return image(v.Destination(), v.Children)
	case *markdown.ReferenceImage:
		return image(v.Destination(), v.Children)
	case *markdown.Emoji:
		return html.EscapeString(":" + v.Name + ":")
	default:
		return ""
	}
}

func (r *renderer) link(href string, children []markdown.Inline) string {
	if !safeURL(href) {
		return r.inlines(children)
	}
	return `<a href="` + html.EscapeString(href) + `">` + r.inlines(children) + `</a>`
}

func image(src string, children []markdown.Inline) string {
	alt := html.EscapeString(altText(children))
	if !safeURL(src) {
		return alt
	}
	return `<img src="` + html.EscapeString(src) + `" alt="` + alt + `"/>`
}

func altText(children []markdown.Inline) string {
	var sb strings.Builder
	for _, in := range children {
		switch v := in.(type) {
		case *markdown.Text:
			sb.WriteString(v.Text)
		case *markdown.CodeSpan:
			sb.WriteString(v.Code)
		case *markdown.InlineLink:
			sb.WriteString(altText(v.Children))
		}
	}
	return sb.String()
}

// spans escapes text and applies the emphasis rules Mattermost markdown
// supports on top of CommonMark.
func spans(s string) string {
	s = html.EscapeString(s)
	s = strongRe.ReplaceAllString(s, "<strong>$1</strong>")
	s = emRe.ReplaceAllString(s, "$1<em>$2</em>$3")
	s = delRe.ReplaceAllString(s, "<del>$1</del>")
	s = spoilerRe.ReplaceAllString(s, `<span data-mx-spoiler>$1</span>`)
	return s
}

// safeURL allows only web and mail links.
func safeURL(href string) bool {
	lower := strings.ToLower(strings.TrimSpace(href))
	for _, scheme := range []string{"http://", "https://", "mailto:"} {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return false
}
