// Copyright 2024-2026 Aiku AI

package markup

import (
	"testing"

	"maunium.net/go/mautrix/event"
)

func TestRenderEmpty(t *testing.T) {
	t.Parallel()
	r := Render("")
	if r.Body != "" || r.HTML != "" || r.Format != "" {
		t.Errorf("empty input: got %+v", r)
	}
}

func TestRenderPlainText(t *testing.T) {
	t.Parallel()
	r := Render("hello world")
	if r.Body != "hello world" {
		t.Errorf("Body: got %q, want %q", r.Body, "hello world")
	}
	if r.Format != "" {
		t.Errorf("plain text should have no format, got %q", r.Format)
	}
	if r.HTML != "" {
		t.Errorf("plain text should have no HTML, got %q", r.HTML)
	}
}

func TestRender(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bold", "**bold** text", "<strong>bold</strong> text"},
		{"italic", "an _italic_ word", "an <em>italic</em> word"},
		{"strikethrough", "~~gone~~", "<del>gone</del>"},
		{"inline code", "use `x`", "use <code>x</code>"},
		{"spoiler", "||secret||", "<span data-mx-spoiler>secret</span>"},
		{"header", "# Title", "<h1>Title</h1>"},
		{"header level 3", "### Sub", "<h3>Sub</h3>"},
		{"bullet list", "- a\n- b", "<ul><li>a</li><li>b</li></ul>"},
		{"numbered list", "1. a\n2. b", "<ol><li>a</li><li>b</li></ol>"},
		{"quote", "> quoted", "<blockquote>quoted</blockquote>"},
		{"link", "[site](https://example.com)", `<a href="https://example.com">site</a>`},
		{"unsafe link", "[x](javascript:void)", "x"},
		{"image", "![cat](https://example.com/c.png)", `<img src="https://example.com/c.png" alt="cat"/>`},
		{"escapes html", "<b>hi</b> **x**", "&lt;b&gt;hi&lt;/b&gt; <strong>x</strong>"},
		{"paragraphs", "a\n\nb **c**", "<p>a</p><p>b <strong>c</strong></p>"},
		{"line breaks", "**a**\nb", "<strong>a</strong><br/>b"},
		{"code block", "```go\nfmt.Println(\"hi\")\n```", "<pre><code class=\"language-go\">fmt.Println(&#34;hi&#34;)\n</code></pre>"},
		{"code block without language", "```\na\n\nb\n```", "<pre><code>a\n\nb\n</code></pre>"},
		{"unclosed code block runs to the end", "```\n**a**", "<pre><code>**a**</code></pre>"},
		{"code span keeps markup literal", "`**x**` **y**", "<code>**x**</code> <strong>y</strong>"},
		{"ordered list start", "3. a\n4. b", `<ol start="3"><li>a</li><li>b</li></ol>`},
		{"list in quote", "> - a\n> - b", "<blockquote><ul><li>a</li><li>b</li></ul></blockquote>"},
		{"header then text", "# Title\nbody", "<h1>Title</h1>body"},
		{"reference link", "[site][1]\n\n[1]: https://example.com", `<a href="https://example.com">site</a>`},
		{"autolink", "**see** https://example.com", `<strong>see</strong> <a href="https://example.com">https://example.com</a>`},
		{"unsafe image", "![cat](javascript:x)", "cat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := Render(tt.in)
			if r.Format != event.FormatHTML {
				t.Errorf("Format: got %q, want %q", r.Format, event.FormatHTML)
			}
			if r.Body != tt.in {
				t.Errorf("Body should preserve source: got %q", r.Body)
			}
			if r.HTML != tt.want {
				t.Errorf("HTML: got %q, want %q", r.HTML, tt.want)
			}
		})
	}
}

func TestHasMarkup(t *testing.T) {
	t.Parallel()
	tests := map[string]bool{
		"":                false,
		"plain":           false,
		"snake_case_name": false,
		"**x**":           true,
		"> q":             true,
		"2. item":         true,
		"a\n\nb":          false,
		"`code`":          true,
		"[a](https://x)":  true,
		"# Title":         true,
	}
	for in, want := range tests {
		if got := HasMarkup(in); got != want {
			t.Errorf("HasMarkup(%q): got %v, want %v", in, got, want)
		}
	}
}
