package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/elonfeng/feedsim/pkg/post"
	"github.com/elonfeng/feedsim/pkg/ranking"
)

// resultRow is one ranked post of a run as stored in run_results.
type resultRow struct {
	RunID              string  `db:"run_id"`
	Position           int     `db:"position"`
	PostIndex          int     `db:"post_index"`
	User               string  `db:"user_name"`
	Caption            string  `db:"caption"`
	Image              string  `db:"image"`
	HashtagsJSON       string  `db:"hashtags"`
	LikedByJSON        string  `db:"liked_by"`
	NumberOfLikes      int     `db:"number_of_likes"`
	LikesScore         float64 `db:"likes_score"`
	FollowsPosterScore float64 `db:"follows_poster_score"`
	HashtagsScore      float64 `db:"hashtags_score"`
	FollowerLikeScore  float64 `db:"follower_like_score"`
	RecencyScore       float64 `db:"recency_score"`
	PaidScore          float64 `db:"paid_score"`
	FinalScore         float64 `db:"final_score"`
}

func toRow(runID string, position int, s ranking.Scored) resultRow {
	hashtagsJSON, _ := json.Marshal(nonNil(s.Hashtags))
	likedByJSON, _ := json.Marshal(nonNil(s.LikedBy))
	return resultRow{
		RunID:              runID,
		Position:           position,
		PostIndex:          s.Index,
		User:               s.User,
		Caption:            s.Caption,
		Image:              s.Image,
		HashtagsJSON:       string(hashtagsJSON),
		LikedByJSON:        string(likedByJSON),
		NumberOfLikes:      s.NumberOfLikes,
		LikesScore:         s.Breakdown.Likes,
		FollowsPosterScore: s.Breakdown.FollowsPoster,
		HashtagsScore:      s.Breakdown.Hashtags,
		FollowerLikeScore:  s.Breakdown.FollowerLikes,
		RecencyScore:       s.Breakdown.Recency,
		PaidScore:          s.Breakdown.Paid,
		FinalScore:         s.FinalScore,
	}
}

func (r resultRow) scored() (ranking.Scored, error) {
	p := post.Post{
		User:          r.User,
		Caption:       r.Caption,
		Image:         r.Image,
		NumberOfLikes: r.NumberOfLikes,
	}
	if err := json.Unmarshal([]byte(r.HashtagsJSON), &p.Hashtags); err != nil {
		return ranking.Scored{}, fmt.Errorf("hashtags at position %d: %w", r.Position, err)
	}
	if err := json.Unmarshal([]byte(r.LikedByJSON), &p.LikedBy); err != nil {
		return ranking.Scored{}, fmt.Errorf("liked_by at position %d: %w", r.Position, err)
	}

	return ranking.Scored{
		Post:  p,
		Index: r.PostIndex,
		Breakdown: ranking.Breakdown{
			Likes:         r.LikesScore,
			FollowsPoster: r.FollowsPosterScore,
			Hashtags:      r.HashtagsScore,
			FollowerLikes: r.FollowerLikeScore,
			Recency:       r.RecencyScore,
			Paid:          r.PaidScore,
		},
		FinalScore: r.FinalScore,
	}, nil
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLite opens a SQLite database and runs migrations.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run) error {
	prepare(run)
	optionsJSON, err := json.Marshal(run.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	run.OptionsJSON = string(optionsJSON)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save run %s: %w", run.ID, err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO runs (id, label, created_at, post_count, top_score, options)
		VALUES (:id, :label, :created_at, :post_count, :top_score, :options)
	`, run)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	for i, res := range run.Results {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO run_results (run_id, position, post_index, user_name, caption, image, hashtags, liked_by,
				number_of_likes, likes_score, follows_poster_score, hashtags_score, follower_like_score,
				recency_score, paid_score, final_score)
			VALUES (:run_id, :position, :post_index, :user_name, :caption, :image, :hashtags, :liked_by,
				:number_of_likes, :likes_score, :follows_poster_score, :hashtags_score, :follower_like_score,
				:recency_score, :paid_score, :final_score)
		`, toRow(run.ID, i+1, res))
		if err != nil {
			return fmt.Errorf("insert result %d of run %s: %w", i+1, run.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", run.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	err := s.db.GetContext(ctx, &run,
		"SELECT id, label, created_at, post_count, top_score, options FROM runs WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(run.OptionsJSON), &run.Options); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}

	var rows []resultRow
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM run_results WHERE run_id = ? ORDER BY position", id); err != nil {
		return nil, fmt.Errorf("get results of run %s: %w", id, err)
	}

	run.Results = make([]ranking.Scored, len(rows))
	for i, r := range rows {
		res, err := r.scored()
		if err != nil {
			return nil, fmt.Errorf("decode run %s: %w", id, err)
		}
		run.Results[i] = res
	}
	return &run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, opts ListOpts) ([]Run, error) {
	var runs []Run
	err := s.db.SelectContext(ctx, &runs, `
		SELECT id, label, created_at, post_count, top_score, options FROM runs
		ORDER BY created_at DESC LIMIT ?
	`, listLimit(opts))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	for i := range runs {
		if err := json.Unmarshal([]byte(runs[i].OptionsJSON), &runs[i].Options); err != nil {
			return nil, fmt.Errorf("decode run %s: %w", runs[i].ID, err)
		}
	}
	return runs, nil
}

func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete run %s: %w", id, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM run_results WHERE run_id = ?", id); err != nil {
		return fmt.Errorf("delete results of run %s: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
