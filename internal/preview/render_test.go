package preview

import (
	"strings"
	"testing"
)

func TestDescribeFallbacks(t *testing.T) {
	t.Parallel()

	site := SiteConfig{
		BaseURL:            "https://stories.example.com",
		Name:               "Stories",
		DefaultCoverURL:    "https://cdn.example.com/default.png",
		DefaultDescription: "Read this story.",
	}
	long := strings.Repeat("A", 300)

	tests := []struct {
		name      string
		story     Story
		wantTitle string
		wantDesc  string
		wantImage string
	}{
		{
			name:      "all present",
			story:     Story{Title: "T", Excerpt: "E", Content: long, CoverURL: "https://img/x.png"},
			wantTitle: "T",
			wantDesc:  "E",
			wantImage: "https://img/x.png",
		},
		{
			name:      "excerpt missing uses first 150 characters of content",
			story:     Story{Title: "T", Content: long},
			wantTitle: "T",
			wantDesc:  long[:150],
			wantImage: site.DefaultCoverURL,
		},
		{
			name:      "short content is used whole",
			story:     Story{Content: "short body"},
			wantTitle: DefaultTitle,
			wantDesc:  "short body",
			wantImage: site.DefaultCoverURL,
		},
		{
			name:      "everything missing",
			story:     Story{},
			wantTitle: DefaultTitle,
			wantDesc:  site.DefaultDescription,
			wantImage: site.DefaultCoverURL,
		},
		{
			name:      "blank strings count as missing",
			story:     Story{Title: "  ", Excerpt: "\t", Content: " ", CoverURL: " "},
			wantTitle: DefaultTitle,
			wantDesc:  site.DefaultDescription,
			wantImage: site.DefaultCoverURL,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := Describe(tt.story, site, "my-slug")
			if p.Title != tt.wantTitle {
				t.Fatalf("title = %q, want %q", p.Title, tt.wantTitle)
			}
			if p.Description != tt.wantDesc {
				t.Fatalf("description = %q, want %q", p.Description, tt.wantDesc)
			}
			if p.Image != tt.wantImage {
				t.Fatalf("image = %q, want %q", p.Image, tt.wantImage)
			}
			if p.CanonicalURL != "https://stories.example.com/story/my-slug" {
				t.Fatalf("canonical = %q", p.CanonicalURL)
			}
			if p.SiteName != "Stories" {
				t.Fatalf("site name = %q", p.SiteName)
			}
		})
	}
}

func TestTruncateRunesCutsMidWordOnRuneBoundary(t *testing.T) {
	t.Parallel()

	content := strings.Repeat("é", 149) + "word"
	got := truncateRunes(content, DescriptionRunes)
	want := strings.Repeat("é", 149) + "w"
	if got != want {
		t.Fatalf("truncateRunes() = %q, want %q", got, want)
	}
	if got := truncateRunes("abc", 3); got != "abc" {
		t.Fatalf("expected exact-length input to be kept, got %q", got)
	}
}

func TestCanonicalURL(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		base, slug, want string
	}{
		"plain":          {"https://app.example.com", "hello", "https://app.example.com/story/hello"},
		"trailing slash": {"https://app.example.com/", "hello", "https://app.example.com/story/hello"},
		"escaped":        {"https://app.example.com", "a b?c", "https://app.example.com/story/a%20b%3Fc"},
	}
	for name, tt := range tests {
		if got := CanonicalURL(tt.base, tt.slug); got != tt.want {
			t.Fatalf("%s: CanonicalURL() = %q, want %q", name, got, tt.want)
		}
	}
}

func TestRenderContainsRequiredTags(t *testing.T) {
	t.Parallel()

	html, err := Render(Preview{
		Title:        "Title",
		Description:  "Desc",
		Image:        "https://cdn.example.com/c.png",
		CanonicalURL: "https://app.example.com/story/x",
		SiteName:     "Site",
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	doc := string(html)
	for _, want := range []string{
		"<title>Title</title>",
		`<meta property="og:title" content="Title"/>`,
		`<meta property="og:description" content="Desc"/>`,
		`<meta property="og:image" content="https://cdn.example.com/c.png"/>`,
		`<meta property="og:type" content="article"/>`,
		`<meta property="og:url" content="https://app.example.com/story/x"/>`,
		`<meta property="og:site_name" content="Site"/>`,
		`<meta name="twitter:card" content="summary_large_image"/>`,
		`<meta name="twitter:title" content="Title"/>`,
		`<meta name="twitter:description" content="Desc"/>`,
		`<meta name="twitter:image" content="https://cdn.example.com/c.png"/>`,
		"<h1>Title</h1>",
		"<p>Desc</p>",
		`<img src="https://cdn.example.com/c.png" alt="cover"`,
	} {
		if !strings.Contains(doc, want) {
			t.Fatalf("rendered document missing %q\n%s", want, doc)
		}
	}
}

func TestRenderNeutralisesScriptURLs(t *testing.T) {
	t.Parallel()

	html, err := Render(Preview{Title: "x", Image: "javascript:alert(1)", CanonicalURL: "https://a/story/x"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if strings.Contains(string(html), `src="javascript:`) {
		t.Fatalf("expected javascript: URL to be filtered:\n%s", html)
	}
}
