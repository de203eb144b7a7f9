package content

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/goliatone/go-slug"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"duendefinder/internal/events"
)

const eventDateLayout = "2006-01-02"

// Site carries the blog-wide values used in the post footer.
type Site struct {
	Name       string
	FooterNote string
}

var markdownEngine = goldmark.New(
	goldmark.WithExtensions(extension.GFM, extension.Linkify),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
)

// MarkdownToHTML renders markdown with GFM and linkify enabled.
func MarkdownToHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("markdown render: %w", err)
	}
	return buf.String(), nil
}

// RenderPostHTML builds the WordPress post body: event details, the
// generated article, the night plan and a footer.
func RenderPostHTML(e *events.Event, site Site) (string, error) {
	if e == nil {
		return "", fmt.Errorf("render post: nil event")
	}
	var out strings.Builder

	intro, err := MarkdownToHTML(introMarkdown(e))
	if err != nil {
		return "", err
	}
	out.WriteString(`<div class="duende-event-details">`)
	out.WriteString(intro)
	out.WriteString("</div>\n")

	body, err := MarkdownToHTML(e.Content.BlogPostMarkdown)
	if err != nil {
		return "", err
	}
	out.WriteString(body)

	if plan := strings.TrimSpace(e.Content.NightPlan); plan != "" {
		planHTML, err := MarkdownToHTML("## Plan your night\n\n" + plan)
		if err != nil {
			return "", err
		}
		out.WriteString(`<div class="duende-night-plan">`)
		if e.Content.SecondaryImageURL != "" {
			fmt.Fprintf(&out, `<img src="%s" alt="%s" />`,
				html.EscapeString(e.Content.SecondaryImageURL), html.EscapeString(e.DisplayTitle()))
		}
		out.WriteString(planHTML)
		out.WriteString("</div>\n")
	}

	out.WriteString(footerHTML(e, site))
	return out.String(), nil
}

func introMarkdown(e *events.Event) string {
	var lines []string
	when := FormatEventDate(e.Date)
	if t := strings.TrimSpace(e.Time); t != "" {
		when += " at " + t
	}
	lines = append(lines, "**When:** "+when)
	if where := joinNonEmpty(", ", e.Venue, e.City); where != "" {
		lines = append(lines, "**Where:** "+where)
	}
	if artist := strings.TrimSpace(e.Artist); artist != "" {
		lines = append(lines, "**Artist:** "+artist)
	}
	return strings.Join(lines, "  \n")
}

func footerHTML(e *events.Event, site Site) string {
	var b strings.Builder
	b.WriteString(`<hr /><p class="duende-footer">`)
	if src := strings.TrimSpace(e.SourceURL); src != "" {
		fmt.Fprintf(&b, `Details and tickets: <a href="%s" rel="nofollow noopener">%s</a>. `,
			html.EscapeString(src), html.EscapeString(src))
	}
	note := strings.TrimSpace(site.FooterNote)
	if note == "" {
		name := strings.TrimSpace(site.Name)
		if name == "" {
			name = "Duende Finder"
		}
		note = fmt.Sprintf("Listings on %s are gathered automatically; confirm times with the venue before you go.", name)
	}
	b.WriteString(html.EscapeString(note))
	b.WriteString("</p>\n")
	return b.String()
}

// FormatEventDate renders a YYYY-MM-DD date as "Friday, 14 March 2025",
// returning the input unchanged when it does not parse.
func FormatEventDate(date string) string {
	date = strings.TrimSpace(date)
	parsed, err := time.Parse(eventDateLayout, date)
	if err != nil {
		return date
	}
	return parsed.Format("Monday, 2 January 2006")
}

// Slug builds the post slug from name, artist, city and date.
func Slug(e *events.Event) string {
	if e == nil {
		return ""
	}
	name := strings.TrimSpace(e.Name)
	artist := strings.TrimSpace(e.Artist)
	if artist != "" && strings.Contains(strings.ToLower(name), strings.ToLower(artist)) {
		artist = ""
	}
	raw := joinNonEmpty(" ", name, artist, e.City, e.Date)
	normalized, err := slug.Normalize(raw)
	if err != nil {
		return ""
	}
	return normalized
}

func joinNonEmpty(sep string, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
