package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"mmnews/internal/logger"
	"mmnews/internal/model"
)

// PostgresStore implements Store on a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens the connection and ensures the schema exists. The
// caller is expected to wrap this in its startup retry.
func NewPostgresStore(ctx context.Context, connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("postgres store connected")
	return store, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS headlines (
		id VARCHAR(40) PRIMARY KEY,
		source_name TEXT NOT NULL,
		source_url TEXT NOT NULL,
		article_url TEXT NOT NULL,
		original_title TEXT NOT NULL,
		neutral_title TEXT NOT NULL DEFAULT '',
		rewrite_mode VARCHAR(16) NOT NULL DEFAULT 'rules',
		rewrite_flags TEXT[] NOT NULL DEFAULT '{}',
		category VARCHAR(32) NOT NULL DEFAULT 'OTHER',
		dedupe_key TEXT NOT NULL DEFAULT '',
		cluster_id VARCHAR(40),
		published_at TIMESTAMPTZ,
		fetched_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		language VARCHAR(8) NOT NULL DEFAULT 'my'
	);

	CREATE INDEX IF NOT EXISTS idx_headlines_fetched_at ON headlines(fetched_at);
	CREATE INDEX IF NOT EXISTS idx_headlines_cluster_id ON headlines(cluster_id);
	CREATE INDEX IF NOT EXISTS idx_headlines_active_lang ON headlines(language, is_active);

	CREATE TABLE IF NOT EXISTS sources (
		name TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		last_fetched_at TIMESTAMPTZ,
		last_error TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	);
	`

	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetHeadline(ctx context.Context, id string) (*model.Headline, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, source_name, source_url, article_url, original_title, neutral_title,
		       rewrite_mode, rewrite_flags, category, dedupe_key, cluster_id,
		       published_at, fetched_at, is_active, language
		FROM headlines WHERE id = $1
	`, id)

	h, err := scanHeadline(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get headline: %w", err)
	}
	return h, nil
}

func (s *PostgresStore) UpsertHeadline(ctx context.Context, h model.Headline) error {
	query := `
		INSERT INTO headlines (id, source_name, source_url, article_url, original_title,
			neutral_title, rewrite_mode, rewrite_flags, category, dedupe_key, cluster_id,
			published_at, fetched_at, is_active, language)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			original_title = EXCLUDED.original_title,
			neutral_title = EXCLUDED.neutral_title,
			rewrite_mode = EXCLUDED.rewrite_mode,
			rewrite_flags = EXCLUDED.rewrite_flags,
			category = EXCLUDED.category,
			dedupe_key = EXCLUDED.dedupe_key,
			cluster_id = COALESCE(EXCLUDED.cluster_id, headlines.cluster_id),
			published_at = EXCLUDED.published_at,
			fetched_at = EXCLUDED.fetched_at,
			is_active = EXCLUDED.is_active
	`

	var clusterID sql.NullString
	if h.ClusterID != "" {
		clusterID = sql.NullString{String: h.ClusterID, Valid: true}
	}
	var publishedAt sql.NullTime
	if h.PublishedAt != nil {
		publishedAt = sql.NullTime{Time: *h.PublishedAt, Valid: true}
	}

	flags := h.RewriteFlags
	if flags == nil {
		flags = []string{}
	}

	_, err := s.db.ExecContext(ctx, query,
		h.ID, h.SourceName, h.SourceURL, h.ArticleURL, h.OriginalTitle,
		h.NeutralTitle, h.RewriteMode, pq.Array(flags), string(h.Category), h.DedupeKey,
		clusterID, publishedAt, h.FetchedAt, h.IsActive, h.Language,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert headline: %w", err)
	}
	return nil
}

func (s *PostgresStore) ActiveHeadlines(ctx context.Context, q Query) ([]model.Headline, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, source_name, source_url, article_url, original_title, neutral_title,
		       rewrite_mode, rewrite_flags, category, dedupe_key, cluster_id,
		       published_at, fetched_at, is_active, language
		FROM headlines WHERE is_active = TRUE`)

	args := []interface{}{}
	if q.Language != "" {
		args = append(args, q.Language)
		sb.WriteString(" AND language = $" + strconv.Itoa(len(args)))
	}
	if q.Category != "" {
		args = append(args, q.Category)
		sb.WriteString(" AND category = $" + strconv.Itoa(len(args)))
	}
	if q.SourceName != "" {
		args = append(args, q.SourceName)
		sb.WriteString(" AND source_name = $" + strconv.Itoa(len(args)))
	}
	sb.WriteString(" ORDER BY fetched_at DESC")
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sb.WriteString(" LIMIT $" + strconv.Itoa(len(args)))
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list headlines: %w", err)
	}
	defer rows.Close()

	var items []model.Headline
	for rows.Next() {
		h, err := scanHeadline(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan headline: %w", err)
		}
		items = append(items, *h)
	}
	return items, rows.Err()
}

func (s *PostgresStore) ClusterMates(ctx context.Context, clusterIDs []string) ([]model.ClusterMate, error) {
	if len(clusterIDs) == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT cluster_id, source_name, article_url
		FROM headlines
		WHERE is_active = TRUE AND cluster_id = ANY($1)
		ORDER BY fetched_at DESC
	`, pq.Array(clusterIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to list cluster mates: %w", err)
	}
	defer rows.Close()

	var mates []model.ClusterMate
	for rows.Next() {
		var m model.ClusterMate
		if err := rows.Scan(&m.ClusterID, &m.SourceName, &m.ArticleURL); err != nil {
			return nil, fmt.Errorf("failed to scan cluster mate: %w", err)
		}
		mates = append(mates, m)
	}
	return mates, rows.Err()
}

func (s *PostgresStore) RecentClustered(ctx context.Context, since time.Time, limit int) ([]model.ClusterCandidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, dedupe_key, cluster_id
		FROM headlines
		WHERE cluster_id IS NOT NULL AND fetched_at > $1
		ORDER BY fetched_at DESC
		LIMIT $2
	`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list cluster candidates: %w", err)
	}
	defer rows.Close()

	var items []model.ClusterCandidate
	for rows.Next() {
		var c model.ClusterCandidate
		if err := rows.Scan(&c.ID, &c.DedupeKey, &c.ClusterID); err != nil {
			return nil, fmt.Errorf("failed to scan cluster candidate: %w", err)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (s *PostgresStore) SetClusterID(ctx context.Context, headlineID, clusterID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE headlines SET cluster_id = $2 WHERE id = $1`, headlineID, clusterID)
	if err != nil {
		return fmt.Errorf("failed to set cluster id: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpsertSource(ctx context.Context, src model.Source) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sources (name, url, is_active)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET url = EXCLUDED.url, is_active = EXCLUDED.is_active
	`, src.Name, src.URL, src.IsActive)
	if err != nil {
		return fmt.Errorf("failed to upsert source: %w", err)
	}
	return nil
}

func (s *PostgresStore) MarkSourceFetched(ctx context.Context, name, fetchErr string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sources SET last_fetched_at = NOW(), last_error = $2 WHERE name = $1
	`, name, fetchErr)
	if err != nil {
		return fmt.Errorf("failed to mark source fetched: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListSources(ctx context.Context) ([]model.Source, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, url, last_fetched_at, last_error, is_active
		FROM sources ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var items []model.Source
	for rows.Next() {
		var src model.Source
		var lastFetched sql.NullTime
		if err := rows.Scan(&src.Name, &src.URL, &lastFetched, &src.LastError, &src.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		if lastFetched.Valid {
			t := lastFetched.Time
			src.LastFetchedAt = &t
		}
		items = append(items, src)
	}
	return items, rows.Err()
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanHeadline(row rowScanner) (*model.Headline, error) {
	var h model.Headline
	var flags pq.StringArray
	var category string
	var clusterID sql.NullString
	var publishedAt sql.NullTime

	err := row.Scan(
		&h.ID, &h.SourceName, &h.SourceURL, &h.ArticleURL, &h.OriginalTitle,
		&h.NeutralTitle, &h.RewriteMode, &flags, &category, &h.DedupeKey,
		&clusterID, &publishedAt, &h.FetchedAt, &h.IsActive, &h.Language,
	)
	if err != nil {
		return nil, err
	}

	h.RewriteFlags = []string(flags)
	h.Category = model.Category(category)
	if clusterID.Valid {
		h.ClusterID = clusterID.String
	}
	if publishedAt.Valid {
		t := publishedAt.Time
		h.PublishedAt = &t
	}
	return &h, nil
}
