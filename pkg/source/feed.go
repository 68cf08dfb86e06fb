package source

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/elonfeng/feedsim/pkg/post"
)

// FeedFile imports posts from a local RSS, Atom or JSON feed file.
type FeedFile struct {
	parser *gofeed.Parser
	name   string
	path   string
}

// NewFeedFile creates a loader for the feed file at path.
func NewFeedFile(name, path string) *FeedFile {
	if name == "" {
		name = path
	}
	return &FeedFile{
		parser: gofeed.NewParser(),
		name:   name,
		path:   path,
	}
}

func (f *FeedFile) Name() string     { return f.name }
func (f *FeedFile) Type() SourceType { return SourceFeed }

func (f *FeedFile) Load(ctx context.Context) ([]post.Post, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("open feed %s: %w", f.name, err)
	}
	defer file.Close()

	parsed, err := f.parser.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", f.name, err)
	}

	posts := make([]post.Post, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		user := entryAuthor(entry)
		if user == "" {
			user = parsed.Title
		}
		if strings.TrimSpace(user) == "" {
			user = f.name
		}

		posts = append(posts, post.New(
			user,
			entry.Title,
			entryImage(entry),
			entry.Categories,
			nil,
			0,
		))
	}

	return posts, nil
}

func entryAuthor(entry *gofeed.Item) string {
	if entry.Author != nil && entry.Author.Name != "" {
		return entry.Author.Name
	}
	for _, a := range entry.Authors {
		if a != nil && a.Name != "" {
			return a.Name
		}
	}
	return ""
}

func entryImage(entry *gofeed.Item) string {
	if entry.Image != nil && entry.Image.URL != "" {
		return entry.Image.URL
	}
	for _, enc := range entry.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return ""
}
