package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/codedojo/internal/storage/migrations"
	_ "github.com/mattn/go-sqlite3"
)

const sqliteQuestionColumns = `q.id, q.topic_id, t.title, q.title, COALESCE(q.difficulty, ''),
	COALESCE(q.problem_statement, ''), COALESCE(q.hidden_answer, ''),
	COALESCE(q.detailed_explanation, '')`

// SQLiteStore implements Store backed by a local SQLite file seeded by migrations
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens the database at path and applies pending migrations
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Single writer
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx, migrations.FS); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// migrate applies every numbered .sql file in fsys newer than the recorded schema version
func (s *SQLiteStore) migrate(ctx context.Context, fsys fs.FS) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	current, err := s.Version(ctx)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		version, err := parseVersion(name)
		if err != nil {
			slog.Warn("skipping non-migration file", "name", name, "error", err)
			continue
		}
		if version <= current {
			continue
		}

		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if err := s.apply(ctx, version, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		slog.Info("applied catalog migration", "name", name, "version", version)
	}

	return nil
}

func (s *SQLiteStore) apply(ctx context.Context, version int, script string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "INSERT OR REPLACE INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// Version returns the current schema version
func (s *SQLiteStore) Version(ctx context.Context) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	return version, err
}

// parseVersion reads the numeric prefix of a name like "001_catalog.sql"
func parseVersion(name string) (int, error) {
	prefix, _, ok := strings.Cut(name, "_")
	if !ok {
		return 0, fmt.Errorf("invalid migration filename: %s", name)
	}
	version, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, fmt.Errorf("parse version from %s: %w", name, err)
	}
	return version, nil
}

// ListTopics returns topics ordered by id
func (s *SQLiteStore) ListTopics(ctx context.Context, withQuestions bool) ([]Topic, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title FROM topics ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	defer rows.Close()

	topics := []Topic{}
	for rows.Next() {
		var t Topic
		if err := rows.Scan(&t.ID, &t.Title); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		topics = append(topics, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	rows.Close()

	if !withQuestions || len(topics) == 0 {
		return topics, nil
	}

	questions, err := s.queryQuestions(ctx, `
		SELECT `+sqliteQuestionColumns+`
		FROM questions q JOIN topics t ON t.id = q.topic_id
		ORDER BY q.topic_id ASC, q.id ASC`)
	if err != nil {
		return nil, err
	}

	return attachQuestions(topics, questions), nil
}

// GetTopicByTitle matches title with LIKE, which SQLite compares case-insensitively for ASCII
func (s *SQLiteStore) GetTopicByTitle(ctx context.Context, title string) (*Topic, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title FROM topics WHERE title LIKE ? ORDER BY id ASC LIMIT 2`, title)
	if err != nil {
		return nil, fmt.Errorf("get topic: %w", err)
	}

	var matches []Topic
	for rows.Next() {
		var t Topic
		if err := rows.Scan(&t.ID, &t.Title); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		matches = append(matches, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get topic: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, ErrTopicNotFound
	case 1:
	default:
		return nil, ErrAmbiguousTopic
	}

	topic := matches[0]
	questions, err := s.queryQuestions(ctx, `
		SELECT `+sqliteQuestionColumns+`
		FROM questions q JOIN topics t ON t.id = q.topic_id
		WHERE q.topic_id = ?
		ORDER BY q.id ASC`, topic.ID)
	if err != nil {
		return nil, err
	}
	topic.Questions = questions

	return &topic, nil
}

// GetQuestion retrieves a question by ID
func (s *SQLiteStore) GetQuestion(ctx context.Context, id int64) (*Question, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sqliteQuestionColumns+`
		FROM questions q JOIN topics t ON t.id = q.topic_id
		WHERE q.id = ?`, id)

	q, err := scanQuestion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("get question: %w", err)
	}
	return q, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) queryQuestions(ctx context.Context, query string, args ...any) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	questions := []Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, *q)
	}
	return questions, rows.Err()
}

// Ensure SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)
