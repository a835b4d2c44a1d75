package preview

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"unicode/utf8"
)

// Fallbacks and limits used when deriving preview fields.
const (
	DefaultTitle       = "Untitled Story"
	DescriptionRunes   = 150
	canonicalStoryPath = "/story/"
)

// SiteConfig describes the client application the gateway fronts.
type SiteConfig struct {
	BaseURL            string
	Name               string
	DefaultCoverURL    string
	DefaultDescription string
}

var pageTemplate = template.Must(template.New("preview").Parse(`<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8"/>
  <title>{{.Title}}</title>
  <link rel="canonical" href="{{.CanonicalURL}}"/>
  <meta property="og:title" content="{{.Title}}"/>
  <meta property="og:description" content="{{.Description}}"/>
  <meta property="og:image" content="{{.Image}}"/>
  <meta property="og:type" content="article"/>
  <meta property="og:url" content="{{.CanonicalURL}}"/>
  <meta property="og:site_name" content="{{.SiteName}}"/>
  <meta name="twitter:card" content="summary_large_image"/>
  <meta name="twitter:title" content="{{.Title}}"/>
  <meta name="twitter:description" content="{{.Description}}"/>
  <meta name="twitter:image" content="{{.Image}}"/>
</head>
<body>
  <h1>{{.Title}}</h1>
  <p>{{.Description}}</p>
  <img src="{{.Image}}" alt="cover" style="max-width:400px"/>
</body>
</html>
`))

// CanonicalURL joins the site base URL, the story path, and the escaped slug.
func CanonicalURL(baseURL, slug string) string {
	return strings.TrimRight(baseURL, "/") + canonicalStoryPath + url.PathEscape(slug)
}

// Describe derives the display fields for a story.
func Describe(story Story, site SiteConfig, slug string) Preview {
	return Preview{
		Title:        firstNonBlank(story.Title, DefaultTitle),
		Description:  description(story, site.DefaultDescription),
		Image:        firstNonBlank(story.CoverURL, site.DefaultCoverURL),
		CanonicalURL: CanonicalURL(site.BaseURL, slug),
		SiteName:     site.Name,
	}
}

// Render executes the preview template. html/template escapes every field for
// the context it lands in (element text, attribute value, or URL).
func Render(p Preview) ([]byte, error) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, p); err != nil {
		return nil, fmt.Errorf("render preview: %w", err)
	}
	return buf.Bytes(), nil
}

func description(story Story, fallback string) string {
	if strings.TrimSpace(story.Excerpt) != "" {
		return story.Excerpt
	}
	if strings.TrimSpace(story.Content) != "" {
		return truncateRunes(story.Content, DescriptionRunes)
	}
	return fallback
}

// truncateRunes keeps the first n runes of s. Cuts may land mid-word.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

func firstNonBlank(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
