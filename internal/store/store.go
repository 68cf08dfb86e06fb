package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/elonfeng/feedsim/pkg/ranking"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// Run is a saved ranking pass: the options used and the ranked output.
type Run struct {
	ID          string           `db:"id" json:"id"`
	Label       string           `db:"label" json:"label"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	PostCount   int              `db:"post_count" json:"post_count"`
	TopScore    float64          `db:"top_score" json:"top_score"`
	OptionsJSON string           `db:"options" json:"-"`
	Options     ranking.Options  `db:"-" json:"options"`
	Results     []ranking.Scored `db:"-" json:"results,omitempty"`
}

// ListOpts controls run listing.
type ListOpts struct {
	Limit int
}

// Store keeps the history of ranking runs.
type Store interface {
	SaveRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, opts ListOpts) ([]Run, error)
	DeleteRun(ctx context.Context, id string) error
	Close() error
}

// prepare fills in the generated fields of a run before it is saved.
func prepare(run *Run) {
	run.Options = run.Options.Sanitize()
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.PostCount == 0 {
		run.PostCount = len(run.Results)
	}
	run.TopScore = 0
	if len(run.Results) > 0 {
		run.TopScore = run.Results[0].FinalScore
	}
}

func listLimit(opts ListOpts) int {
	if opts.Limit <= 0 {
		return 50
	}
	return opts.Limit
}
