// Copyright 2024-2026 Aiku AI

// Package format builds Mattermost markdown for bot replies.
package format

import (
	"strings"
)

// URLForPost returns "": Mattermost permalinks need the team name, which
// posts do not carry.
func URLForPost(string) string { return "" }

// URLForTopic returns "" for the same reason as URLForPost.
func URLForTopic(string) string { return "" }

// Quote prefixes every line of text with "> ". Attribution is not supported.
func Quote(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = "> " + line
	}
	return strings.Join(lines, "\n")
}

// Link formats a markdown link. Empty text defaults to "A link".
func Link(url, text string) string {
	if text == "" {
		text = "A link"
	}
	return "[" + text + "](" + url + ")"
}

// Image formats a markdown image.
func Image(url, alt string) string {
	return "![" + alt + "](" + url + ")"
}

// Spoiler hides text as ROT13 since Mattermost has no spoiler markup.
func Spoiler(text string) string {
	return "ROT13: " + strings.Map(rot13, text)
}

func rot13(r rune) rune {
	switch {
	case r >= 'a' && r <= 'z':
		return 'a' + (r-'a'+13)%26
	case r >= 'A' && r <= 'Z':
		return 'A' + (r-'A'+13)%26
	default:
		return r
	}
}

func Bold(text string) string { return "**" + text + "**" }

func Italic(text string) string { return "_" + text + "_" }

func BoldItalic(text string) string { return Bold(Italic(text)) }

func Strikethrough(text string) string { return "~~" + text + "~~" }

// Header formats text as a header of the given level, clamped to 1..6.
func Header(level int, text string) string {
	level = max(1, min(level, 6))
	return strings.Repeat("#", level) + " " + text
}

func Header1(text string) string { return Header(1, text) }
func Header2(text string) string { return Header(2, text) }
func Header3(text string) string { return Header(3, text) }
func Header4(text string) string { return Header(4, text) }
func Header5(text string) string { return Header(5, text) }
func Header6(text string) string { return Header(6, text) }

// Preformat wraps single-line text in inline code and multi-line text in a
// fenced block.
func Preformat(text string) string {
	if strings.Contains(text, "\n") {
		return "```\n" + text + "\n```"
	}
	return "`" + text + "`"
}

// List formats items as a bulleted list, one item per line.
func List(items []string) string {
	var b strings.Builder
	for _, item := range items {
		b.WriteString("\n- ")
		b.WriteString(item)
	}
	return b.String()
}
