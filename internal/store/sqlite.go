package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/phishguard/phishguard/internal/model"
	_ "modernc.org/sqlite"
)

const timeFormat = "2006-01-02 15:04:05.000000000"

// SQLiteStore implements Store backed by SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens a SQLite database at the given path and runs
// migrations.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	// Sort by filename to ensure order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		data, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("execute migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

type scannable interface {
	Scan(dest ...interface{}) error
}

// --- Feedback ---

func (s *SQLiteStore) CreateFeedback(ctx context.Context, rec *model.FeedbackRecord) error {
	flags := []byte("[]")
	if rec.Flags != nil {
		var err error
		flags, err = json.Marshal(rec.Flags)
		if err != nil {
			return fmt.Errorf("marshal flags: %w", err)
		}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (id, url, user_label, comment, confidence_level, expertise, user_id, status, validation_score, flags, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.URL, rec.UserLabel, rec.Comment, rec.ConfidenceLevel,
		string(rec.Expertise), rec.UserID, string(rec.Status),
		rec.ValidationScore, string(flags), rec.CreatedAt.UTC().Format(timeFormat))
	return err
}

func (s *SQLiteStore) GetFeedback(ctx context.Context, id string) (*model.FeedbackRecord, error) {
	rec, err := s.scanFeedback(s.db.QueryRowContext(ctx,
		`SELECT id, url, user_label, comment, confidence_level, expertise, user_id, status, validation_score, flags, created_at
		 FROM feedback WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return rec, err
}

func (s *SQLiteStore) ListOpenFeedback(ctx context.Context, limit int) ([]*model.FeedbackRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, user_label, comment, confidence_level, expertise, user_id, status, validation_score, flags, created_at
		 FROM feedback
		 WHERE status IN (?, ?)
		 ORDER BY CASE status WHEN ? THEN 0 ELSE 1 END, created_at ASC
		 LIMIT ?`,
		string(model.FeedbackPending), string(model.FeedbackFlagged),
		string(model.FeedbackFlagged), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*model.FeedbackRecord
	for rows.Next() {
		rec, err := s.scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ResolveFeedback transitions an open record to a terminal status. The
// conditional UPDATE is the claim: whichever concurrent decision runs
// first takes the row, the loser sees zero rows affected.
func (s *SQLiteStore) ResolveFeedback(ctx context.Context, id string, status model.FeedbackStatus) (*model.FeedbackRecord, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE feedback SET status = ? WHERE id = ? AND status IN (?, ?)`,
		string(status), id,
		string(model.FeedbackPending), string(model.FeedbackFlagged))
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		if _, err := s.GetFeedback(ctx, id); err != nil {
			return nil, ErrNotFound
		}
		return nil, ErrNotOpen
	}
	return s.GetFeedback(ctx, id)
}

func (s *SQLiteStore) CountFeedbackByStatus(ctx context.Context) (map[model.FeedbackStatus]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM feedback GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.FeedbackStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[model.FeedbackStatus(status)] = n
	}
	return counts, rows.Err()
}

func (s *SQLiteStore) scanFeedback(row scannable) (*model.FeedbackRecord, error) {
	var rec model.FeedbackRecord
	var expertise, status, flagsJSON, createdAt string
	err := row.Scan(&rec.ID, &rec.URL, &rec.UserLabel, &rec.Comment,
		&rec.ConfidenceLevel, &expertise, &rec.UserID, &status,
		&rec.ValidationScore, &flagsJSON, &createdAt)
	if err != nil {
		return nil, err
	}
	rec.Expertise = model.Expertise(expertise)
	rec.Status = model.FeedbackStatus(status)
	if err := json.Unmarshal([]byte(flagsJSON), &rec.Flags); err != nil {
		return nil, fmt.Errorf("unmarshal flags: %w", err)
	}
	rec.CreatedAt, err = time.Parse(timeFormat, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &rec, nil
}

// --- Admin decisions ---

func (s *SQLiteStore) CreateAdminDecision(ctx context.Context, d *model.AdminDecision) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO admin_decisions (id, feedback_id, decision, admin_id, comment, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.FeedbackID, d.Decision, d.AdminID, d.Comment,
		d.CreatedAt.UTC().Format(timeFormat))
	return err
}

func (s *SQLiteStore) ListRecentDecisions(ctx context.Context, limit int) ([]*model.AdminDecision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, feedback_id, decision, admin_id, comment, created_at
		 FROM admin_decisions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decisions []*model.AdminDecision
	for rows.Next() {
		var d model.AdminDecision
		var createdAt string
		if err := rows.Scan(&d.ID, &d.FeedbackID, &d.Decision, &d.AdminID, &d.Comment, &createdAt); err != nil {
			return nil, err
		}
		d.CreatedAt, err = time.Parse(timeFormat, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		decisions = append(decisions, &d)
	}
	return decisions, rows.Err()
}

// --- Corpus ---

// UpsertCorpusEntry enforces the dedup rule in SQL: one row per
// normalized URL, replaced only when the incoming validation score is
// at least as high (ties go to the newer entry).
func (s *SQLiteStore) UpsertCorpusEntry(ctx context.Context, e *model.CorpusEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO corpus (url, label, feedback_id, validation_score, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET
		     label = excluded.label,
		     feedback_id = excluded.feedback_id,
		     validation_score = excluded.validation_score,
		     created_at = excluded.created_at
		 WHERE excluded.validation_score >= corpus.validation_score`,
		e.URL, e.Label, e.FeedbackID, e.ValidationScore,
		e.CreatedAt.UTC().Format(timeFormat))
	return err
}

func (s *SQLiteStore) GetCorpusEntry(ctx context.Context, normalizedURL string) (*model.CorpusEntry, error) {
	var e model.CorpusEntry
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT url, label, feedback_id, validation_score, created_at
		 FROM corpus WHERE url = ?`, normalizedURL).
		Scan(&e.URL, &e.Label, &e.FeedbackID, &e.ValidationScore, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	e.CreatedAt, err = time.Parse(timeFormat, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &e, nil
}

func (s *SQLiteStore) ListCorpus(ctx context.Context, limit int) ([]*model.CorpusEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT url, label, feedback_id, validation_score, created_at
		 FROM corpus ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*model.CorpusEntry
	for rows.Next() {
		var e model.CorpusEntry
		var createdAt string
		if err := rows.Scan(&e.URL, &e.Label, &e.FeedbackID, &e.ValidationScore, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt, err = time.Parse(timeFormat, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
