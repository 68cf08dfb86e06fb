package source

import (
	"context"
	"fmt"
	"os"

	"github.com/elonfeng/feedsim/pkg/post"
)

// CSVFile loads posts from a delimited text file.
type CSVFile struct {
	path string
}

// NewCSVFile creates a loader for the file at path.
func NewCSVFile(path string) *CSVFile {
	return &CSVFile{path: path}
}

func (c *CSVFile) Name() string     { return c.path }
func (c *CSVFile) Type() SourceType { return SourceCSV }

func (c *CSVFile) Load(ctx context.Context) ([]post.Post, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.path, err)
	}
	return post.Parse(string(data)), nil
}
