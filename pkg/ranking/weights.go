package ranking

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// MaxWeight is the upper bound of the user-facing weight scale.
const MaxWeight = 10

// Weight is a user-tunable signal importance on a 0-10 scale. Values outside
// the scale are accepted and clamped when scoring.
type Weight float64

// Weights holds one Weight per signal.
type Weights struct {
	Likes         Weight `json:"likes" yaml:"likes"`
	FollowsPoster Weight `json:"follows_poster" yaml:"follows_poster"`
	Hashtags      Weight `json:"hashtags" yaml:"hashtags"`
	FollowerLikes Weight `json:"follower_likes" yaml:"follower_likes"`
	Recency       Weight `json:"recency" yaml:"recency"`
	Paid          Weight `json:"paid" yaml:"paid"`
}

// DefaultWeights returns the weights used when no profile specifies any.
func DefaultWeights() Weights {
	return Weights{Likes: 5, FollowsPoster: 5, Hashtags: 5, FollowerLikes: 5}
}

// Normalize clamps w into [0, MaxWeight] and scales it to a multiplier in [0, 1].
// NaN is treated as 0.
func Normalize(w Weight) float64 {
	f := float64(w)
	switch {
	case math.IsNaN(f), f <= 0:
		return 0
	case f >= MaxWeight:
		return 1
	}
	return f / MaxWeight
}

// ParseWeight parses a weight from user input. Non-numeric input yields 0 and
// infinities land on the ends of the scale.
func ParseWeight(s string) Weight {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return Weight(f).finite()
}

// finite maps NaN and -Inf to 0 and +Inf to MaxWeight. Finite values are
// returned unchanged.
func (w Weight) finite() Weight {
	f := float64(w)
	switch {
	case math.IsNaN(f), math.IsInf(f, -1):
		return 0
	case math.IsInf(f, 1):
		return MaxWeight
	}
	return w
}

func (w Weights) finite() Weights {
	return Weights{
		Likes:         w.Likes.finite(),
		FollowsPoster: w.FollowsPoster.finite(),
		Hashtags:      w.Hashtags.finite(),
		FollowerLikes: w.FollowerLikes.finite(),
		Recency:       w.Recency.finite(),
		Paid:          w.Paid.finite(),
	}
}

// Set assigns the weight named key. Both snake_case and camelCase names are
// accepted. It reports whether the key named a known signal.
func (w *Weights) Set(key string, v Weight) bool {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(key), "_", "")) {
	case "likes":
		w.Likes = v
	case "followsposter":
		w.FollowsPoster = v
	case "hashtags":
		w.Hashtags = v
	case "followerlikes":
		w.FollowerLikes = v
	case "recency":
		w.Recency = v
	case "paid":
		w.Paid = v
	default:
		return false
	}
	return true
}

// UnmarshalJSON accepts numbers and numeric strings; anything else decodes to 0.
func (w *Weight) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*w = Weight(f).finite()
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*w = ParseWeight(s)
		return nil
	}
	*w = 0
	return nil
}

// UnmarshalYAML accepts numbers and numeric strings; anything else decodes to 0.
func (w *Weight) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		*w = 0
		return nil
	}
	var f float64
	if err := node.Decode(&f); err == nil {
		*w = Weight(f).finite()
		return nil
	}
	*w = ParseWeight(node.Value)
	return nil
}
