package store

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    label       TEXT NOT NULL DEFAULT '',
    created_at  DATETIME NOT NULL,
    post_count  INTEGER NOT NULL DEFAULT 0,
    top_score   REAL NOT NULL DEFAULT 0,
    options     TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);

CREATE TABLE IF NOT EXISTS run_results (
    run_id               TEXT NOT NULL REFERENCES runs(id),
    position             INTEGER NOT NULL,
    post_index           INTEGER NOT NULL,
    user_name            TEXT NOT NULL,
    caption              TEXT NOT NULL DEFAULT '',
    image                TEXT NOT NULL DEFAULT '',
    hashtags             TEXT NOT NULL DEFAULT '[]',
    liked_by             TEXT NOT NULL DEFAULT '[]',
    number_of_likes      INTEGER NOT NULL DEFAULT 0,
    likes_score          REAL NOT NULL DEFAULT 0,
    follows_poster_score REAL NOT NULL DEFAULT 0,
    hashtags_score       REAL NOT NULL DEFAULT 0,
    follower_like_score  REAL NOT NULL DEFAULT 0,
    recency_score        REAL NOT NULL DEFAULT 0,
    paid_score           REAL NOT NULL DEFAULT 0,
    final_score          REAL NOT NULL DEFAULT 0,
    PRIMARY KEY (run_id, position)
);

CREATE INDEX IF NOT EXISTS idx_run_results_user ON run_results(user_name);
`
