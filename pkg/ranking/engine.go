package ranking

import (
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/elonfeng/feedsim/pkg/post"
)

const (
	recencyWindowDays = 30
	paidBonus         = 10
)

// Options is the scoring configuration for a single ranking pass.
type Options struct {
	// CurrentUser identifies the viewer. Signals key off FollowedUsers.
	CurrentUser      string   `json:"current_user"`
	FollowedUsers    []string `json:"followed_users"`
	FollowedHashtags []string `json:"followed_hashtags"`
	Weights          Weights  `json:"weights"`

	// Elapsed days per post, looked up by ordinal index first, then by user.
	// A post found in neither map has unknown recency.
	RecencyByIndex map[int]float64    `json:"recency_by_index,omitempty"`
	RecencyByUser  map[string]float64 `json:"recency_by_user,omitempty"`

	PromotedIndexes []int    `json:"promoted_indexes,omitempty"`
	PromotedUsers   []string `json:"promoted_users,omitempty"`

	// MaxMatches caps the hashtag and follower-like match counts.
	// Zero leaves them unbounded.
	MaxMatches int `json:"max_matches,omitempty"`
}

// Sanitize returns a copy of o that contains only finite numbers. Infinite or
// NaN weights move to the nearest end of the scale and non-finite day counts
// are dropped. Scores are the same for o and o.Sanitize().
func (o Options) Sanitize() Options {
	o.Weights = o.Weights.finite()
	o.RecencyByIndex = finiteDays(o.RecencyByIndex)
	o.RecencyByUser = finiteDays(o.RecencyByUser)
	return o
}

func finiteDays[K comparable](days map[K]float64) map[K]float64 {
	if days == nil {
		return nil
	}
	out := make(map[K]float64, len(days))
	for k, d := range days {
		if math.IsNaN(d) || math.IsInf(d, 0) {
			continue
		}
		out[k] = d
	}
	return out
}

// Breakdown holds the per-signal sub-scores of a post.
type Breakdown struct {
	Likes         float64 `json:"likes_score"`
	FollowsPoster float64 `json:"follows_poster_score"`
	Hashtags      float64 `json:"hashtags_score"`
	FollowerLikes float64 `json:"follower_like_score"`
	Recency       float64 `json:"recency_score"`
	Paid          float64 `json:"paid_score"`
}

// Total returns the sum of all sub-scores.
func (b Breakdown) Total() float64 {
	return b.Likes + b.FollowsPoster + b.Hashtags + b.FollowerLikes + b.Recency + b.Paid
}

// Scored is a post annotated with its original position and scores.
type Scored struct {
	post.Post
	Index      int       `json:"index"`
	Breakdown  Breakdown `json:"breakdown"`
	FinalScore float64   `json:"final_score"`
}

// multipliers are the normalized weights of one pass.
type multipliers struct {
	likes, followsPoster, hashtags, followerLikes, recency, paid float64
}

// scorer holds the lookup sets derived from Options.
type scorer struct {
	w               multipliers
	followedUsers   map[string]bool
	followedTags    map[string]bool
	recencyByIndex  map[int]float64
	recencyByUser   map[string]float64
	promotedIndexes map[int]bool
	promotedUsers   map[string]bool
	maxMatches      int
}

// Score computes the breakdown and final score of every post and returns them
// sorted by final score descending. Posts with equal scores keep their
// original relative order. The input slice is not modified.
func Score(posts []post.Post, opts Options) []Scored {
	s := newScorer(opts)

	scored := make([]Scored, len(posts))
	for i, p := range posts {
		b := s.breakdown(i, p)
		scored[i] = Scored{
			Post:       clonePost(p),
			Index:      i,
			Breakdown:  b,
			FinalScore: b.Total(),
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].FinalScore > scored[j].FinalScore
	})
	return scored
}

// Top returns the first n scored posts. n <= 0 returns all of them.
func Top(scored []Scored, n int) []Scored {
	if n <= 0 || n >= len(scored) {
		return scored
	}
	return scored[:n]
}

func newScorer(opts Options) *scorer {
	s := &scorer{
		w: multipliers{
			likes:         Normalize(opts.Weights.Likes),
			followsPoster: Normalize(opts.Weights.FollowsPoster),
			hashtags:      Normalize(opts.Weights.Hashtags),
			followerLikes: Normalize(opts.Weights.FollowerLikes),
			recency:       Normalize(opts.Weights.Recency),
			paid:          Normalize(opts.Weights.Paid),
		},
		followedUsers:   make(map[string]bool, len(opts.FollowedUsers)),
		followedTags:    make(map[string]bool, len(opts.FollowedHashtags)),
		recencyByIndex:  opts.RecencyByIndex,
		recencyByUser:   opts.RecencyByUser,
		promotedIndexes: make(map[int]bool, len(opts.PromotedIndexes)),
		promotedUsers:   make(map[string]bool, len(opts.PromotedUsers)),
		maxMatches:      opts.MaxMatches,
	}

	for _, u := range opts.FollowedUsers {
		s.followedUsers[u] = true
	}
	for _, t := range opts.FollowedHashtags {
		s.followedTags[strings.ToLower(strings.TrimSpace(t))] = true
	}
	for _, i := range opts.PromotedIndexes {
		s.promotedIndexes[i] = true
	}
	for _, u := range opts.PromotedUsers {
		s.promotedUsers[u] = true
	}
	return s
}

func (s *scorer) breakdown(idx int, p post.Post) Breakdown {
	var b Breakdown

	// Log compression keeps outlier like counts from dominating.
	b.Likes = s.w.likes * math.Log10(1+float64(max(p.NumberOfLikes, 0)))

	if s.followedUsers[p.User] {
		b.FollowsPoster = s.w.followsPoster
	}

	b.Hashtags = s.w.hashtags * float64(s.capMatches(countIn(p.Hashtags, s.followedTags)))
	b.FollowerLikes = s.w.followerLikes * float64(s.capMatches(countIn(p.LikedBy, s.followedUsers)))

	if days, ok := s.daysElapsed(idx, p.User); ok {
		b.Recency = s.w.recency * math.Max(0, (recencyWindowDays-days)/recencyWindowDays)
	}

	if s.promotedUsers[p.User] || s.promotedIndexes[idx] {
		b.Paid = s.w.paid * paidBonus
	}
	return b
}

// daysElapsed looks up recency by index first, then by user. Non-finite
// values count as unknown.
func (s *scorer) daysElapsed(idx int, user string) (float64, bool) {
	days, ok := s.recencyByIndex[idx]
	if !ok {
		days, ok = s.recencyByUser[user]
	}
	if !ok || math.IsNaN(days) || math.IsInf(days, 0) {
		return 0, false
	}
	return days, true
}

func (s *scorer) capMatches(n int) int {
	if s.maxMatches > 0 && n > s.maxMatches {
		return s.maxMatches
	}
	return n
}

func countIn(values []string, set map[string]bool) int {
	n := 0
	for _, v := range values {
		if set[v] {
			n++
		}
	}
	return n
}

func clonePost(p post.Post) post.Post {
	p.Hashtags = slices.Clone(p.Hashtags)
	p.LikedBy = slices.Clone(p.LikedBy)
	return p
}
