package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpenSQLite_Migrates(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	version, err := store.Version(ctx)
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if version != 2 {
		t.Errorf("Version() = %d, want 2", version)
	}

	if err := store.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestOpenSQLite_ReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	ctx := context.Background()

	first, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("first OpenSQLite() error = %v", err)
	}
	first.Close()

	second, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("second OpenSQLite() error = %v", err)
	}
	defer second.Close()

	topics, err := second.ListTopics(ctx, false)
	if err != nil {
		t.Fatalf("ListTopics() error = %v", err)
	}
	if len(topics) != 4 {
		t.Errorf("ListTopics() returned %d topics after reopen, want 4", len(topics))
	}
}

func TestSQLiteStore_Migrate_SkipsAppliedAndBadNames(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	fsys := fstest.MapFS{
		"001_old.sql":   {Data: []byte("this is not sql and must not run")},
		"003_extra.sql": {Data: []byte("CREATE TABLE extra (id INTEGER PRIMARY KEY);")},
		"readme.sql":    {Data: []byte("ignored")},
		"notes.txt":     {Data: []byte("ignored")},
	}
	if err := store.migrate(ctx, fsys); err != nil {
		t.Fatalf("migrate() error = %v", err)
	}

	version, err := store.Version(ctx)
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if version != 3 {
		t.Errorf("Version() = %d, want 3", version)
	}
}

func TestSQLiteStore_Migrate_FailureRollsBack(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	fsys := fstest.MapFS{
		"005_broken.sql": {Data: []byte("CREATE TABLE broken (id INTEGER PRIMARY KEY); SELECT * FROM missing_table;")},
	}
	if err := store.migrate(ctx, fsys); err == nil {
		t.Fatal("migrate() should fail on a broken script")
	}

	version, err := store.Version(ctx)
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if version != 2 {
		t.Errorf("Version() = %d after failed migration, want 2", version)
	}
}

func TestSQLiteStore_ListTopics(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	topics, err := store.ListTopics(ctx, false)
	if err != nil {
		t.Fatalf("ListTopics() error = %v", err)
	}

	wantTitles := []string{"Loops", "Strings", "Lists", "Recursion"}
	if len(topics) != len(wantTitles) {
		t.Fatalf("ListTopics() returned %d topics, want %d", len(topics), len(wantTitles))
	}
	for i, title := range wantTitles {
		if topics[i].Title != title {
			t.Errorf("topics[%d].Title = %q, want %q", i, topics[i].Title, title)
		}
		if topics[i].Questions != nil {
			t.Errorf("topics[%d].Questions should be nil without questions", i)
		}
	}
}

func TestSQLiteStore_ListTopicsWithQuestions(t *testing.T) {
	store := openTestStore(t)

	topics, err := store.ListTopics(context.Background(), true)
	if err != nil {
		t.Fatalf("ListTopics() error = %v", err)
	}

	total := 0
	for _, topic := range topics {
		lastID := int64(0)
		for _, q := range topic.Questions {
			if q.TopicID != topic.ID {
				t.Errorf("question %d attached to topic %d, belongs to %d", q.ID, topic.ID, q.TopicID)
			}
			if q.ID <= lastID {
				t.Errorf("questions of topic %q not ordered by id", topic.Title)
			}
			lastID = q.ID
			total++
		}
	}
	if total != 8 {
		t.Errorf("attached %d questions, want 8", total)
	}
}

func TestSQLiteStore_GetTopicByTitle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		title     string
		wantTitle string
		wantCount int
		wantErr   error
	}{
		{"exact", "Loops", "Loops", 3, nil},
		{"case insensitive", "loops", "Loops", 3, nil},
		{"upper case", "RECURSION", "Recursion", 2, nil},
		{"missing", "graphs", "", 0, ErrTopicNotFound},
		{"ambiguous pattern", "L%", "", 0, ErrAmbiguousTopic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topic, err := store.GetTopicByTitle(ctx, tt.title)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("GetTopicByTitle(%q) error = %v, want %v", tt.title, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetTopicByTitle(%q) error = %v", tt.title, err)
			}
			if topic.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", topic.Title, tt.wantTitle)
			}
			if len(topic.Questions) != tt.wantCount {
				t.Errorf("len(Questions) = %d, want %d", len(topic.Questions), tt.wantCount)
			}
			for i := 1; i < len(topic.Questions); i++ {
				if topic.Questions[i-1].ID >= topic.Questions[i].ID {
					t.Errorf("questions not ordered by id: %d before %d", topic.Questions[i-1].ID, topic.Questions[i].ID)
				}
			}
		})
	}
}

func TestSQLiteStore_GetQuestion(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	q, err := store.GetQuestion(ctx, 1)
	if err != nil {
		t.Fatalf("GetQuestion() error = %v", err)
	}

	if q.Title != "Sum of Digits" {
		t.Errorf("Title = %q", q.Title)
	}
	if q.TopicTitle != "Loops" {
		t.Errorf("TopicTitle = %q, want Loops", q.TopicTitle)
	}
	if q.Difficulty != DifficultyEasy {
		t.Errorf("Difficulty = %q, want Easy", q.Difficulty)
	}
	if strings.Contains(q.ProblemStatement, `\n`) || !strings.Contains(q.ProblemStatement, "\n") {
		t.Errorf("ProblemStatement not normalised: %q", q.ProblemStatement)
	}
	if !strings.Contains(q.HiddenAnswer, "\n    total = 0") {
		t.Errorf("HiddenAnswer not normalised: %q", q.HiddenAnswer)
	}

	if _, err := store.GetQuestion(ctx, 999); !errors.Is(err, ErrQuestionNotFound) {
		t.Errorf("GetQuestion(999) error = %v, want ErrQuestionNotFound", err)
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name    string
		want    int
		wantErr bool
	}{
		{"001_catalog.sql", 1, false},
		{"042_more_things.sql", 42, false},
		{"catalog.sql", 0, true},
		{"abc_catalog.sql", 0, true},
	}

	for _, tt := range tests {
		got, err := parseVersion(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseVersion(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseVersion(%q) = %d, want %d", tt.name, got, tt.want)
		}
	}
}
