package post

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCaptionWithDelimiter(t *testing.T) {
	posts := Parse("amy,hi,there,img.png,music;art,bob;amy,120")
	require.Len(t, posts, 1)

	p := posts[0]
	assert.Equal(t, "amy", p.User)
	assert.Equal(t, "hi,there", p.Caption)
	assert.Equal(t, "img.png", p.Image)
	assert.Equal(t, []string{"music", "art"}, p.Hashtags)
	assert.Equal(t, []string{"bob", "amy"}, p.LikedBy)
	assert.Equal(t, 120, p.NumberOfLikes)
}

func TestParseHeaderAndLineEndings(t *testing.T) {
	text := "User,Caption,Image,Hashtags,Liked By,Likes\r\n" +
		"  amy,first,a.png,music,bob,1  \r\n" +
		"\n" +
		"bob,second,b.png,art,amy,2\r" +
		"cara,third,c.png,,,3\n"

	posts := Parse(text)
	require.Len(t, posts, 3)
	assert.Equal(t, "amy", posts[0].User)
	assert.Equal(t, "bob", posts[1].User)
	assert.Equal(t, "cara", posts[2].User)
	assert.Empty(t, posts[2].Hashtags)
	assert.Empty(t, posts[2].LikedBy)
}

func TestParseHeaderOnlyOnFirstLine(t *testing.T) {
	posts := Parse("amy,a,a.png,x,y,1\nuser,b,b.png,x,y,2")
	require.Len(t, posts, 2)
	assert.Equal(t, "user", posts[1].User)
}

func TestParseDropsShortRows(t *testing.T) {
	text := "amy,cap,img.png,tag,bob,5\n" +
		"not,enough,fields\n" +
		"=====\n" +
		"bob,cap,img.png,tag,amy,7\n"

	posts := Parse(text)
	require.Len(t, posts, 2)
	assert.Equal(t, "amy", posts[0].User)
	assert.Equal(t, "bob", posts[1].User)
}

func TestParseDropsBlankUser(t *testing.T) {
	posts := Parse(" ,cap,img.png,tag,bob,5")
	assert.Empty(t, posts)
}

func TestParseEmptyInput(t *testing.T) {
	assert.Empty(t, Parse(""))
	assert.Empty(t, Parse("\n\r\n  \n"))
	assert.Empty(t, Parse("user,caption,image,hashtags,liked_by,likes"))
}

func TestParseListFields(t *testing.T) {
	posts := Parse("amy,cap,img.png, Music | ART;music;; ,bob| ;cara ,3")
	require.Len(t, posts, 1)
	assert.Equal(t, []string{"music", "art"}, posts[0].Hashtags)
	assert.Equal(t, []string{"bob", "cara"}, posts[0].LikedBy)
}

func TestParseLikes(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"120", 120},
		{" 42 ", 42},
		{"", 0},
		{"lots", 0},
		{"-5", 0},
		{"12.9", 12},
		{"NaN", 0},
		{"Inf", 0},
		{"1e3", 1000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLikes(tt.in), "input %q", tt.in)
	}
}

func TestParseNonNumericLikes(t *testing.T) {
	posts := Parse("amy,cap,img.png,tag,bob,many")
	require.Len(t, posts, 1)
	assert.Equal(t, 0, posts[0].NumberOfLikes)
}

func TestNew(t *testing.T) {
	p := New(" amy ", " hello ", " i.png ", []string{"Go", "go", " "}, []string{"bob", "", " bob "}, -3)
	assert.Equal(t, "amy", p.User)
	assert.Equal(t, "hello", p.Caption)
	assert.Equal(t, "i.png", p.Image)
	assert.Equal(t, []string{"go"}, p.Hashtags)
	assert.Equal(t, []string{"bob", "bob"}, p.LikedBy)
	assert.Equal(t, 0, p.NumberOfLikes)
}
