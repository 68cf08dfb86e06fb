package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/elonfeng/feedsim/internal/config"
	"github.com/elonfeng/feedsim/internal/logging"
	"github.com/elonfeng/feedsim/internal/store"
	"github.com/elonfeng/feedsim/pkg/post"
	"github.com/elonfeng/feedsim/pkg/ranking"
	"github.com/elonfeng/feedsim/pkg/server"
	"github.com/elonfeng/feedsim/pkg/source"
)

const captionWidth = 60

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

// setup loads the config and builds the logger every command needs.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, _, err := logging.New(cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	return cfg, logger, nil
}

// buildStore opens the configured run history. It returns a nil store when
// history is disabled.
func buildStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverNone:
		return nil, nil
	case config.DriverRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return store.NewRedis(rdb, cfg.Store.ParseTTL()), nil
	default:
		db, err := store.NewSQLite(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
}

func requireStore(cfg *config.Config) (store.Store, error) {
	db, err := buildStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if db == nil {
		return nil, errors.New("run history is disabled (store.driver: none)")
	}
	return db, nil
}

// buildSources uses the files given on the command line, falling back to the
// configured sources when there are none.
func buildSources(cfg *config.Config, files, feeds []string) []source.Source {
	var sources []source.Source

	if len(files) == 0 && len(feeds) == 0 {
		for _, path := range cfg.Sources.CSV {
			sources = append(sources, source.NewCSVFile(path))
		}
		for _, f := range cfg.Sources.Feeds {
			sources = append(sources, source.NewFeedFile(f.Name, f.Path))
		}
		return sources
	}

	for _, path := range files {
		sources = append(sources, source.NewCSVFile(path))
	}
	for _, arg := range feeds {
		name, path, ok := strings.Cut(arg, "=")
		if !ok {
			name, path = "", arg
		}
		sources = append(sources, source.NewFeedFile(name, path))
	}
	return sources
}

func loadPosts(ctx context.Context, logger *zap.Logger, sources []source.Source) ([]post.Post, error) {
	if len(sources) == 0 {
		return nil, errors.New("no input files (pass files or configure sources.csv / sources.feeds)")
	}

	posts, err := source.LoadAll(ctx, sources)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded posts", zap.Int("sources", len(sources)), zap.Int("posts", len(posts)))
	return posts, nil
}

// buildOptions applies command line overrides on top of the configured profile.
func buildOptions(cfg *config.Config, f rankFlags, logger *zap.Logger) ranking.Options {
	opts := cfg.Profile.Options()

	for k, v := range f.weights {
		if !opts.Weights.Set(k, ranking.ParseWeight(v)) {
			logger.Warn("unknown weight ignored", zap.String("name", k))
		}
	}
	if len(f.follows) > 0 {
		opts.FollowedUsers = f.follows
	}
	if len(f.hashtags) > 0 {
		opts.FollowedHashtags = f.hashtags
	}
	if len(f.promoteUsers) > 0 {
		opts.PromotedUsers = append(opts.PromotedUsers, f.promoteUsers...)
	}
	if len(f.promoteIdx) > 0 {
		opts.PromotedIndexes = append(opts.PromotedIndexes, f.promoteIdx...)
	}
	if len(f.recencyUsers) > 0 {
		merged := make(map[string]float64, len(opts.RecencyByUser)+len(f.recencyUsers))
		for k, v := range opts.RecencyByUser {
			merged[k] = v
		}
		for user, days := range f.recencyUsers {
			d, err := strconv.ParseFloat(days, 64)
			if err != nil || math.IsNaN(d) || math.IsInf(d, 0) {
				logger.Warn("invalid recency ignored", zap.String("user", user), zap.String("days", days))
				continue
			}
			merged[user] = d
		}
		opts.RecencyByUser = merged
	}
	if len(f.recencyIdx) > 0 {
		merged := make(map[int]float64, len(opts.RecencyByIndex)+len(f.recencyIdx))
		for k, v := range opts.RecencyByIndex {
			merged[k] = v
		}
		for idx, days := range f.recencyIdx {
			i, err := strconv.Atoi(idx)
			d, err2 := strconv.ParseFloat(days, 64)
			if err != nil || err2 != nil || math.IsNaN(d) || math.IsInf(d, 0) {
				logger.Warn("invalid recency ignored", zap.String("index", idx), zap.String("days", days))
				continue
			}
			merged[i] = d
		}
		opts.RecencyByIndex = merged
	}
	if f.maxMatches >= 0 {
		opts.MaxMatches = f.maxMatches
	}
	return opts.Sanitize()
}

func runParse(ctx context.Context, files []string, jsonOutput bool) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	posts, err := loadPosts(ctx, logger, buildSources(cfg, files, nil))
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(os.Stdout, posts)
	}
	return printPosts(os.Stdout, posts)
}

func runRank(ctx context.Context, files []string, f rankFlags) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	posts, err := loadPosts(ctx, logger, buildSources(cfg, files, f.feeds))
	if err != nil {
		return err
	}

	opts := buildOptions(cfg, f, logger)
	filter := source.NewFilter(cfg.Filter.ExcludeKeywords)
	scored := filter.Apply(ranking.Score(posts, opts))
	if hidden := len(posts) - len(scored); hidden > 0 {
		logger.Info("filtered posts", zap.Int("hidden", hidden))
	}

	if f.save {
		db, err := requireStore(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		run := &store.Run{Label: f.label, PostCount: len(posts), Options: opts, Results: scored}
		if err := db.SaveRun(ctx, run); err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		logger.Info("saved run", zap.String("id", run.ID), zap.String("label", run.Label))
	}

	top := ranking.Top(scored, f.limit)
	if f.jsonOutput {
		return writeJSON(os.Stdout, top)
	}
	return printScored(os.Stdout, top)
}

func runListRuns(ctx context.Context, limit int) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := requireStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.ListRuns(ctx, store.ListOpts{Limit: limit})
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("no saved runs (try: feedsim rank --save)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLABEL\tPOSTS\tTOP SCORE\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.4f\t%s\n",
			r.ID, r.Label, r.PostCount, r.TopScore, humanize.Time(r.CreatedAt))
	}
	return w.Flush()
}

func runShowRun(ctx context.Context, id string, jsonOutput bool) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := requireStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	run, err := db.GetRun(ctx, id)
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}

	if jsonOutput {
		return writeJSON(os.Stdout, run)
	}
	fmt.Printf("run %s %q, %d posts, created %s\n\n",
		run.ID, run.Label, run.PostCount, humanize.Time(run.CreatedAt))
	return printScored(os.Stdout, run.Results)
}

func runDeleteRun(ctx context.Context, id string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := requireStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.DeleteRun(ctx, id); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	logger.Info("deleted run", zap.String("id", id))
	return nil
}

func runServe(port int) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := buildStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if db != nil {
		defer db.Close()
	} else {
		logger.Info("run history disabled")
	}

	filter := source.NewFilter(cfg.Filter.ExcludeKeywords)
	srv := server.New(db, cfg.Profile.Options(), filter, logger, port)
	return srv.ListenAndServe()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printPosts(out io.Writer, posts []post.Post) error {
	if len(posts) == 0 {
		fmt.Fprintln(out, "no posts found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tUSER\tCAPTION\tHASHTAGS\tLIKED BY\tLIKES")
	for i, p := range posts {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			i, p.User, truncate(p.Caption, captionWidth),
			strings.Join(p.Hashtags, ","), strings.Join(p.LikedBy, ","),
			humanize.Comma(int64(p.NumberOfLikes)))
	}
	return w.Flush()
}

func printScored(out io.Writer, scored []ranking.Scored) error {
	if len(scored) == 0 {
		fmt.Fprintln(out, "no posts to rank")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tINDEX\tUSER\tCAPTION\tLIKES\tSCORE")
	for i, s := range scored {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%.4f\n",
			i+1, s.Index, s.User, truncate(s.Caption, captionWidth),
			humanize.Comma(int64(s.NumberOfLikes)), s.FinalScore)
	}
	return w.Flush()
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
