package post

import (
	"math"
	"strconv"
	"strings"
)

// Post is a single normalized feed record.
type Post struct {
	User          string   `json:"user"`
	Caption       string   `json:"caption"`
	Image         string   `json:"image"`
	Hashtags      []string `json:"hashtags"`
	LikedBy       []string `json:"liked_by"`
	NumberOfLikes int      `json:"number_of_likes"`
}

// New builds a normalized Post from already separated fields.
func New(user, caption, image string, hashtags, likedBy []string, likes int) Post {
	if likes < 0 {
		likes = 0
	}
	return Post{
		User:          strings.TrimSpace(user),
		Caption:       strings.TrimSpace(caption),
		Image:         strings.TrimSpace(image),
		Hashtags:      NormalizeHashtags(hashtags),
		LikedBy:       compact(likedBy),
		NumberOfLikes: likes,
	}
}

// SplitList splits a list field on ';' or '|', trimming tokens and dropping blanks.
func SplitList(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ';' || r == '|'
	})
	return compact(parts)
}

// NormalizeHashtags lowercases tags and removes blanks and duplicates,
// keeping the first occurrence.
func NormalizeHashtags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// ParseLikes parses a like count. Anything that is not a finite,
// non-negative number yields 0; fractions are truncated.
func ParseLikes(s string) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}

func compact(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
