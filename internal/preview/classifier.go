package preview

import "strings"

// DefaultSignatures are lowercase User-Agent substrings of link-preview
// fetchers. Extend the list here or through classifier.extra_signatures.
var DefaultSignatures = []string{
	// generic
	"bot",
	"crawl",
	"spider",
	"fetcher",
	"preview",
	// social and chat unfurlers
	"facebookexternalhit",
	"facebot",
	"twitterbot",
	"slackbot",
	"slack-imgproxy",
	"discordbot",
	"telegrambot",
	"whatsapp",
	"linkedinbot",
	"skypeuripreview",
	"redditbot",
	"pinterest",
	"embedly",
	"quora link preview",
	"vkshare",
	"iframely",
	"tumblr",
	"mastodon",
	"nuzzel",
	"outbrain",
	"viber",
	"snapchat",
	"bitlybot",
	// search engines that also build cards
	"applebot",
	"googlebot",
	"bingbot",
	"google-inspectiontool",
	"w3c_validator",
}

// Classifier tells link-preview crawlers apart from browsers.
type Classifier struct {
	signatures []string
}

// NewClassifier returns a Classifier matching DefaultSignatures plus extra.
// Extra signatures are trimmed and lower-cased; blanks are ignored.
func NewClassifier(extra ...string) *Classifier {
	sigs := make([]string, 0, len(DefaultSignatures)+len(extra))
	sigs = append(sigs, DefaultSignatures...)
	for _, sig := range extra {
		sig = strings.ToLower(strings.TrimSpace(sig))
		if sig == "" {
			continue
		}
		sigs = append(sigs, sig)
	}
	return &Classifier{signatures: sigs}
}

// Classify reports whether userAgent belongs to a preview crawler. An empty
// User-Agent is treated as a human.
func (c *Classifier) Classify(userAgent string) bool {
	if c == nil || userAgent == "" {
		return false
	}
	ua := strings.ToLower(userAgent)
	for _, sig := range c.signatures {
		if strings.Contains(ua, sig) {
			return true
		}
	}
	return false
}

// Signatures returns a copy of the active signature list.
func (c *Classifier) Signatures() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.signatures...)
}
