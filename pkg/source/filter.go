package source

import (
	"strings"

	"github.com/elonfeng/feedsim/pkg/post"
	"github.com/elonfeng/feedsim/pkg/ranking"
)

// Filter hides posts whose caption or hashtags mention an excluded keyword.
type Filter struct {
	exclude []string
}

// NewFilter creates a filter from a list of excluded keywords.
func NewFilter(excludeKeywords []string) *Filter {
	exclude := make([]string, 0, len(excludeKeywords))
	for _, kw := range excludeKeywords {
		// Lowercase for case-insensitive matching.
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			exclude = append(exclude, kw)
		}
	}
	return &Filter{exclude: exclude}
}

// Excludes returns true if the post mentions an excluded keyword.
func (f *Filter) Excludes(p post.Post) bool {
	if f == nil || len(f.exclude) == 0 {
		return false
	}

	caption := strings.ToLower(p.Caption)
	for _, ex := range f.exclude {
		if strings.Contains(caption, ex) {
			return true
		}
		for _, tag := range p.Hashtags {
			if tag == strings.TrimPrefix(ex, "#") {
				return true
			}
		}
	}
	return false
}

// Apply drops excluded posts from an already ranked list. Filtering happens
// after scoring so ordinal indexes keep referring to the loaded order.
func (f *Filter) Apply(scored []ranking.Scored) []ranking.Scored {
	if f == nil || len(f.exclude) == 0 {
		return scored
	}
	out := make([]ranking.Scored, 0, len(scored))
	for _, s := range scored {
		if !f.Excludes(s.Post) {
			out = append(out, s)
		}
	}
	return out
}
