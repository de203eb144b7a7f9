package content

import (
	"fmt"
	"strings"
	"time"

	"duendefinder/internal/events"
)

// Generated is the JSON package returned by the LLM.
type Generated struct {
	BlogPostTitle    string                `json:"blogPostTitle"`
	BlogPostMarkdown string                `json:"blogPostMarkdown"`
	NightPlan        string                `json:"nightPlan"`
	Excerpt          string                `json:"excerpt"`
	SocialCaptions   events.SocialCaptions `json:"socialCaptions"`
	Hashtags         []string              `json:"hashtags"`
}

// Validate reports the first missing required field.
func (g Generated) Validate() error {
	var missing []string
	if strings.TrimSpace(g.BlogPostTitle) == "" {
		missing = append(missing, "blogPostTitle")
	}
	if strings.TrimSpace(g.BlogPostMarkdown) == "" {
		missing = append(missing, "blogPostMarkdown")
	}
	if len(missing) > 0 {
		return fmt.Errorf("generated content missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Apply copies the generated text into the event's content package and
// stamps the generation metadata. Image fields are left untouched.
func (g Generated) Apply(pkg *events.ContentPackage, model string, now time.Time) {
	pkg.BlogPostTitle = strings.TrimSpace(g.BlogPostTitle)
	pkg.BlogPostMarkdown = strings.TrimSpace(g.BlogPostMarkdown)
	pkg.NightPlan = strings.TrimSpace(g.NightPlan)
	pkg.Excerpt = strings.TrimSpace(g.Excerpt)
	pkg.SocialCaptions = events.SocialCaptions{
		Pinterest: strings.TrimSpace(g.SocialCaptions.Pinterest),
		Reddit:    strings.TrimSpace(g.SocialCaptions.Reddit),
		X:         strings.TrimSpace(g.SocialCaptions.X),
	}
	pkg.Hashtags = cleanHashtags(g.Hashtags)
	generated := now.UTC()
	pkg.ContentGenerationDate = &generated
	pkg.ContentModel = strings.TrimSpace(model)
}

func cleanHashtags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ReplaceAll(strings.TrimLeft(strings.TrimSpace(tag), "#"), " ", "")
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out
}
