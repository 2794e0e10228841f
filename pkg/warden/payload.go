// Copyright 2024-2026 Aiku AI

package warden

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
)

// maxTitleLen is the length cap on derived archive titles.
const maxTitleLen = 60

// defaultTitle is used when a message has no usable content.
const defaultTitle = "Share"

var urlPattern = regexp.MustCompile(`https?://\S+`)

// ArchivePayload is the normalized description of a source message, built
// fresh for every forwarded message and discarded after rendering.
type ArchivePayload struct {
	AuthorName  string
	AuthorIcon  string
	Permalink   string
	Title       string
	URLs        []string
	Attachments []Attachment
	Color       string
}

// BuildPayload derives an archive payload from a message. The display color
// is freshly randomized on every call; it is not a function of the content.
func BuildPayload(msg *Message) *ArchivePayload {
	return &ArchivePayload{
		AuthorName:  msg.AuthorName,
		AuthorIcon:  msg.AuthorIcon,
		Permalink:   msg.Permalink,
		Title:       DeriveTitle(msg.Text),
		URLs:        ExtractURLs(msg.Text),
		Attachments: msg.Attachments,
		Color:       randomColor(),
	}
}

// DeriveTitle builds an archive title from message content: the first line,
// with doubled spaces collapsed, capped at 60 characters with a trailing
// ellipsis. A blank first line yields the default title; later lines are
// never consulted.
func DeriveTitle(content string) string {
	line, _, _ := strings.Cut(content, "\n")
	for strings.Contains(line, "  ") {
		line = strings.ReplaceAll(line, "  ", " ")
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return defaultTitle
	}
	if len(line) > maxTitleLen {
		cut := maxTitleLen - 3
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		return line[:cut] + "..."
	}
	return line
}

// ExtractURLs returns all URL-like substrings of the content in their
// original order, or nil when there are none.
func ExtractURLs(content string) []string {
	return urlPattern.FindAllString(content, -1)
}

// randomColor returns a 6-hex-digit display color.
func randomColor() string {
	return fmt.Sprintf("%06x", rand.Intn(0x1000000))
}

// Embed renders the payload into an embed for posting.
func (p *ArchivePayload) Embed() *Embed {
	embed := &Embed{
		AuthorName: p.AuthorName,
		AuthorIcon: p.AuthorIcon,
		Title:      p.Title,
		TitleLink:  p.Permalink,
		Color:      p.Color,
	}
	if len(p.URLs) > 0 {
		embed.Fields = append(embed.Fields, EmbedField{
			Name:  "Links",
			Value: strings.Join(p.URLs, "\n"),
		})
	}
	if len(p.Attachments) > 0 {
		lines := make([]string, 0, len(p.Attachments))
		for _, a := range p.Attachments {
			lines = append(lines, fmt.Sprintf("%s (%s)", a.Name, humanize.Bytes(uint64(a.Size))))
		}
		embed.Fields = append(embed.Fields, EmbedField{
			Name:  "Attachments",
			Value: strings.Join(lines, "\n"),
		})
	}
	return embed
}
