package fetcher

import (
	"regexp"
	"strings"
)

var (
	blockRes = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<script[^>]*>.*?</script\s*>`),
		regexp.MustCompile(`(?is)<style[^>]*>.*?</style\s*>`),
		regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript\s*>`),
		regexp.MustCompile(`(?s)<!--.*?(-->|$)`),
	}
	tagRe   = regexp.MustCompile(`<[^>]+>`)
	spaceRe = regexp.MustCompile(`\s+`)

	entityReplacer = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&#039;", "'",
		"&apos;", "'",
	)
)

// StripHTML reduces markup to plain text: script, style and comment regions
// are dropped, remaining tags removed, common entities decoded and
// whitespace collapsed. Malformed markup is tolerated.
func StripHTML(s string) string {
	for _, re := range blockRes {
		s = re.ReplaceAllString(s, " ")
	}
	s = tagRe.ReplaceAllString(s, " ")
	s = entityReplacer.Replace(s)
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
