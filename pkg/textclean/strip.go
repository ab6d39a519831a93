package textclean

import (
	"sort"
	"strings"
)

const (
	// ContentMarker separates content blocks on Postmedia-style pages.
	ContentMarker = "Article content"
	// SharePrompt opens the subscription prompt that trails the last content block.
	SharePrompt = "Share this article in your social network"
)

var photoCreditMarkers = []string{"Photo by", "Postmedia"}

// Denylist is the catalogue of publisher boilerplate removed from article bodies.
var Denylist = []string{
	"This advertisement has not loaded yet, but your article continues below.",
	"Share this Story:",
	"Advertisement Story continues below",
	"We apologize, but this video has failed to load.",
	"Try refreshing your browser, or",
	"Try refreshing your browser.",
	SharePrompt,
	"Latest National Stories",
	"News Near Portage",
	"The news seems to be flying at us faster all the time. From COVID-19 updates to " +
		"politics and crime and everything in between, it can be hard to keep up. With that " +
		"in mind, the Regina Leader-Post has created an Afternoon Headlines newsletter that " +
		"can be delivered daily to your inbox to help make sure you are up to date with the " +
		"most vital news of the day. Click here to subscribe.",
	"Click here to subscribe.",
	"tap here to see other videos from our team.",
	"Back to video",
}

// Stripper removes publisher boilerplate and echoed metadata from article bodies.
type Stripper struct {
	phrases    []string
	normalizer *Normalizer
}

// NewStripper builds a Stripper for the given denylist. Longer phrases are removed first so a
// phrase that contains a shorter one is taken out whole.
func NewStripper(denylist []string, normalizer *Normalizer) *Stripper {
	phrases := make([]string, 0, len(denylist))
	for _, p := range denylist {
		if p != "" {
			phrases = append(phrases, p)
		}
	}
	sort.SliceStable(phrases, func(i, j int) bool { return len(phrases[i]) > len(phrases[j]) })
	if normalizer == nil {
		normalizer = defaultNormalizer
	}
	return &Stripper{phrases: phrases, normalizer: normalizer}
}

// Strip returns the cleaned body. It never fails; empty title or description are ignored.
func (s *Stripper) Strip(body, title, description string) string {
	clean := cutContentSegments(body)
	echoes := []string{
		title,
		s.normalizer.Normalize(title),
		description,
		s.normalizer.Normalize(description),
	}

	// Each removal can splice a new occurrence together, so iterate to a fixed point.
	for {
		next := clean
		for _, e := range echoes {
			next = removeAll(next, e)
		}
		for _, p := range s.phrases {
			next = removeAll(next, p)
		}
		next = s.normalizer.Normalize(next)
		next = strings.Join(strings.Fields(next), " ")
		if next == clean {
			return next
		}
		clean = next
	}
}

var defaultStripper = NewStripper(Denylist, defaultNormalizer)

// Strip cleans body with the default denylist and normalizer.
func Strip(body, title, description string) string {
	return defaultStripper.Strip(body, title, description)
}

// cutContentSegments drops the photo-credit preamble and the trailing share prompt around
// "Article content" blocks.
func cutContentSegments(body string) string {
	if !strings.Contains(body, ContentMarker) {
		return body
	}
	segments := strings.Split(body, ContentMarker)

	for len(segments) > 1 && strings.TrimSpace(segments[0]) == "" {
		segments = segments[1:]
	}
	if len(segments) > 0 && containsAny(segments[0], photoCreditMarkers) {
		segments = segments[1:]
	}
	if n := len(segments); n > 0 {
		if i := strings.Index(segments[n-1], SharePrompt); i >= 0 {
			segments[n-1] = segments[n-1][:i]
		}
	}
	return strings.Join(segments, "")
}

func removeAll(s, phrase string) string {
	if phrase == "" {
		return s
	}
	return strings.ReplaceAll(s, phrase, "")
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
