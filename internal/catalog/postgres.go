package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgQuestionColumns = `q.id, q.topic_id, t.title, q.title, COALESCE(q.difficulty, ''),
	COALESCE(q.problem_statement, ''), COALESCE(q.hidden_answer, ''),
	COALESCE(q.detailed_explanation, '')`

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// OpenPostgres connects to databaseURL and verifies the connection
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return NewPostgresStore(pool), nil
}

// ListTopics returns topics ordered by id
func (s *PostgresStore) ListTopics(ctx context.Context, withQuestions bool) ([]Topic, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, title FROM topics ORDER BY id ASC`)
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

	if !withQuestions || len(topics) == 0 {
		return topics, nil
	}

	questions, err := s.queryQuestions(ctx, `
		SELECT `+pgQuestionColumns+`
		FROM questions q JOIN topics t ON t.id = q.topic_id
		ORDER BY q.topic_id ASC, q.id ASC`)
	if err != nil {
		return nil, err
	}

	return attachQuestions(topics, questions), nil
}

// GetTopicByTitle matches title with ILIKE
func (s *PostgresStore) GetTopicByTitle(ctx context.Context, title string) (*Topic, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, title FROM topics WHERE title ILIKE $1 ORDER BY id ASC LIMIT 2`, title)
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
		SELECT `+pgQuestionColumns+`
		FROM questions q JOIN topics t ON t.id = q.topic_id
		WHERE q.topic_id = $1
		ORDER BY q.id ASC`, topic.ID)
	if err != nil {
		return nil, err
	}
	topic.Questions = questions

	return &topic, nil
}

// GetQuestion retrieves a question by ID
func (s *PostgresStore) GetQuestion(ctx context.Context, id int64) (*Question, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+pgQuestionColumns+`
		FROM questions q JOIN topics t ON t.id = q.topic_id
		WHERE q.id = $1`, id)

	q, err := scanQuestion(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("get question: %w", err)
	}
	return q, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) queryQuestions(ctx context.Context, query string, args ...any) ([]Question, error) {
	rows, err := s.pool.Query(ctx, query, args...)
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

// rowScanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (*Question, error) {
	var q Question
	var difficulty string
	if err := row.Scan(&q.ID, &q.TopicID, &q.TopicTitle, &q.Title, &difficulty,
		&q.ProblemStatement, &q.HiddenAnswer, &q.DetailedExplanation); err != nil {
		return nil, err
	}
	q.Difficulty = Difficulty(difficulty)
	q.normalize()
	return &q, nil
}

// attachQuestions groups questions, already ordered by id, under their topics
func attachQuestions(topics []Topic, questions []Question) []Topic {
	index := make(map[int64]int, len(topics))
	for i := range topics {
		index[topics[i].ID] = i
		topics[i].Questions = []Question{}
	}
	for _, q := range questions {
		if i, ok := index[q.TopicID]; ok {
			topics[i].Questions = append(topics[i].Questions, q)
		}
	}
	return topics
}

// Ensure PostgresStore implements Store
var _ Store = (*PostgresStore)(nil)
