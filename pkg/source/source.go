package source

import (
	"context"
	"fmt"

	"github.com/elonfeng/feedsim/pkg/post"
)

// SourceType identifies the format a source is read from.
type SourceType string

const (
	SourceCSV  SourceType = "csv"
	SourceFeed SourceType = "feed"
)

// Source is the interface every post loader must implement.
type Source interface {
	Name() string
	Type() SourceType
	Load(ctx context.Context) ([]post.Post, error)
}

// LoadAll loads every source in order and concatenates the posts, so ordinal
// positions follow the order the sources were given in.
func LoadAll(ctx context.Context, sources []Source) ([]post.Post, error) {
	var all []post.Post
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		posts, err := src.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load %s %s: %w", src.Type(), src.Name(), err)
		}
		all = append(all, posts...)
	}
	return all, nil
}
