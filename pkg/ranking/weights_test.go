package ranking

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseWeight(t *testing.T) {
	assert.Equal(t, Weight(7), ParseWeight("7"))
	assert.Equal(t, Weight(2.5), ParseWeight(" 2.5 "))
	assert.Equal(t, Weight(-3), ParseWeight("-3"))
	assert.Equal(t, Weight(0), ParseWeight("high"))
	assert.Equal(t, Weight(0), ParseWeight(""))
	assert.Equal(t, Weight(0), ParseWeight("NaN"))
	assert.Equal(t, Weight(MaxWeight), ParseWeight("Inf"))
	assert.Equal(t, Weight(MaxWeight), ParseWeight("+infinity"))
	assert.Equal(t, Weight(0), ParseWeight("-Inf"))
}

func TestWeightsSet(t *testing.T) {
	var w Weights
	assert.True(t, w.Set("likes", 1))
	assert.True(t, w.Set("follows_poster", 2))
	assert.True(t, w.Set("followsPoster", 2))
	assert.True(t, w.Set("Hashtags", 3))
	assert.True(t, w.Set("follower_likes", 4))
	assert.True(t, w.Set("recency", 5))
	assert.True(t, w.Set("paid", 6))
	assert.False(t, w.Set("shares", 9))

	assert.Equal(t, Weights{Likes: 1, FollowsPoster: 2, Hashtags: 3, FollowerLikes: 4, Recency: 5, Paid: 6}, w)
}

func TestWeightsUnmarshalJSON(t *testing.T) {
	var w Weights
	err := json.Unmarshal([]byte(`{"likes": 7, "follows_poster": "8", "hashtags": "lots", "follower_likes": null, "recency": true, "paid": 15}`), &w)
	require.NoError(t, err)

	assert.Equal(t, Weights{Likes: 7, FollowsPoster: 8, Paid: 15}, w)
}

func TestWeightsUnmarshalYAML(t *testing.T) {
	var w Weights
	err := yaml.Unmarshal([]byte("likes: 7\nfollows_poster: \"3\"\nhashtags: many\nrecency: [1, 2]\npaid: -2\n"), &w)
	require.NoError(t, err)

	assert.Equal(t, Weights{Likes: 7, FollowsPoster: 3, Paid: -2}, w)

	w = Weights{}
	require.NoError(t, yaml.Unmarshal([]byte("likes: .inf\nhashtags: -.inf\nrecency: .nan\npaid: \"Inf\"\n"), &w))
	assert.Equal(t, Weights{Likes: MaxWeight, Paid: MaxWeight}, w)
}

func TestWeightsUnmarshalJSONInfinity(t *testing.T) {
	var w Weights
	require.NoError(t, json.Unmarshal([]byte(`{"likes": "Inf", "hashtags": "-Inf", "paid": "NaN"}`), &w))
	assert.Equal(t, Weights{Likes: MaxWeight}, w)

	_, err := json.Marshal(w)
	assert.NoError(t, err)
}
