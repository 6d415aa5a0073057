// Package archive keeps closed polls in SQLite. The live room only ever
// writes to it; the HTTP API reads from it.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"pollroom/pkg/interfaces"
	"pollroom/pkg/types"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Config for a Store.
type Config struct {
	Path            string
	MaxConnections  int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	WriteTimeout    time.Duration
	RetryDelay      time.Duration
}

func DefaultConfig() Config {
	return Config{
		Path:            "./data/pollroom.db",
		MaxConnections:  10,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 10 * time.Minute,
		WriteTimeout:    30 * time.Second,
		RetryDelay:      time.Second,
	}
}

// Store implements interfaces.PollArchive. SQLite allows one writer at a
// time, so every write runs on the writeLoop goroutine; reads go straight to
// the pool.
type Store struct {
	db           *sql.DB
	cfg          Config
	logger       *slog.Logger
	writeChannel chan writeOperation
	shutdown     chan struct{}
	wg           sync.WaitGroup
	closed       bool
	mu           sync.RWMutex
}

var _ interfaces.PollArchive = (*Store)(nil)

type writeOperation struct {
	operation func(*sql.DB) error
	result    chan error
}

// Open creates the database file if needed and applies migrations.
func Open(cfg Config, logger *slog.Logger) (*Store, error) {
	defaults := DefaultConfig()
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = defaults.MaxConnections
	}
	if cfg.ConnMaxLifetime <= 0 {
		cfg.ConnMaxLifetime = defaults.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime <= 0 {
		cfg.ConnMaxIdleTime = defaults.ConnMaxIdleTime
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := applyPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	migrator := NewMigrator(db)
	if err := migrator.Apply(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrator.ValidateSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{
		db:           db,
		cfg:          cfg,
		logger:       logger.With("component", "archive"),
		writeChannel: make(chan writeOperation, 100),
		shutdown:     make(chan struct{}),
	}
	s.wg.Add(1)
	go s.writeLoop()

	return s, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma %s: %w", pragma, err)
		}
	}
	return nil
}

// writeLoop applies writes one at a time. A failed write is retried once,
// except for constraint violations which would fail again.
func (s *Store) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case op := <-s.writeChannel:
			err := op.operation(s.db)
			if err != nil && !errors.Is(err, ErrAlreadyArchived) {
				s.logger.Warn("archive write failed, retrying", "error", err, "delay", s.cfg.RetryDelay)
				time.Sleep(s.cfg.RetryDelay)
				err = op.operation(s.db)
				if err != nil {
					s.logger.Error("archive write failed after retry", "error", err)
				}
			}
			op.result <- err

		case <-s.shutdown:
			return
		}
	}
}

func (s *Store) executeWrite(ctx context.Context, operation func(*sql.DB) error) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrStoreClosed
	}
	s.mu.RUnlock()

	result := make(chan error, 1)
	timer := time.NewTimer(s.cfg.WriteTimeout)
	defer timer.Stop()

	select {
	case s.writeChannel <- writeOperation{operation: operation, result: result}:
	case <-timer.C:
		return ErrWriteTimeout
	case <-s.shutdown:
		return ErrStoreClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ArchivePoll stores a closed poll and its responses in one transaction.
func (s *Store) ArchivePoll(ctx context.Context, record *types.PollRecord) error {
	if record == nil {
		return ErrNilRecord
	}

	options, err := json.Marshal(record.Options)
	if err != nil {
		return fmt.Errorf("failed to marshal options: %w", err)
	}
	banned := record.BannedStudents
	if banned == nil {
		banned = []string{}
	}
	bannedJSON, err := json.Marshal(banned)
	if err != nil {
		return fmt.Errorf("failed to marshal banned students: %w", err)
	}
	results, err := json.Marshal(record.Tally.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	return s.executeWrite(ctx, func(db *sql.DB) error {
		// the write loop may run this after the caller gave up
		opCtx := context.WithoutCancel(ctx)

		tx, err := db.BeginTx(opCtx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		_, err = tx.ExecContext(opCtx, `
			INSERT INTO polls (id, question, options, created_by, created_at, expires_at, closed_at,
				is_active, close_reason, banned_students, results, total_responses, total_students)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			record.ID,
			record.Question,
			string(options),
			record.CreatedBy,
			record.CreatedAt.UTC(),
			record.ExpiresAt.UTC(),
			record.ClosedAt.UTC(),
			record.IsActive,
			record.CloseReason,
			string(bannedJSON),
			string(results),
			record.Tally.TotalResponses,
			record.Tally.TotalStudents,
		)
		if err != nil {
			if isPrimaryKeyViolation(err) {
				return ErrAlreadyArchived
			}
			return fmt.Errorf("failed to insert poll: %w", err)
		}

		stmt, err := tx.PrepareContext(opCtx, `
			INSERT INTO responses (poll_id, student_name, answer, submitted_at, is_valid)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare response insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, r := range record.Responses {
			if _, err := stmt.ExecContext(opCtx, record.ID, r.StudentName, r.Answer, r.SubmittedAt.UTC(), r.IsValid); err != nil {
				return fmt.Errorf("failed to insert response for %s: %w", r.StudentName, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit poll archive: %w", err)
		}
		return nil
	})
}

func isPrimaryKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

const pollColumns = `id, question, options, created_by, created_at, expires_at, closed_at,
	is_active, close_reason, banned_students, results, total_responses, total_students`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPoll(row rowScanner) (*types.PollRecord, error) {
	var (
		record                        types.PollRecord
		options, banned, results      string
		totalResponses, totalStudents int
	)
	err := row.Scan(
		&record.ID,
		&record.Question,
		&options,
		&record.CreatedBy,
		&record.CreatedAt,
		&record.ExpiresAt,
		&record.ClosedAt,
		&record.IsActive,
		&record.CloseReason,
		&banned,
		&results,
		&totalResponses,
		&totalStudents,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(options), &record.Options); err != nil {
		return nil, fmt.Errorf("failed to unmarshal options: %w", err)
	}
	if err := json.Unmarshal([]byte(banned), &record.BannedStudents); err != nil {
		return nil, fmt.Errorf("failed to unmarshal banned students: %w", err)
	}
	record.Tally = types.Tally{TotalResponses: totalResponses, TotalStudents: totalStudents}
	if err := json.Unmarshal([]byte(results), &record.Tally.Results); err != nil {
		return nil, fmt.Errorf("failed to unmarshal results: %w", err)
	}
	return &record, nil
}

// ListPolls returns recently closed polls, newest first, without responses.
func (s *Store) ListPolls(ctx context.Context, limit int) ([]*types.PollRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+pollColumns+" FROM polls ORDER BY closed_at DESC, id LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query polls: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := []*types.PollRecord{}
	for rows.Next() {
		record, err := scanPoll(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan poll: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// GetPoll returns one archived poll with its responses.
func (s *Store) GetPoll(ctx context.Context, pollID string) (*types.PollRecord, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+pollColumns+" FROM polls WHERE id = ?", pollID)
	record, err := scanPoll(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, interfaces.ErrPollNotFound
		}
		return nil, fmt.Errorf("failed to query poll: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT poll_id, student_name, answer, submitted_at, is_valid
		FROM responses
		WHERE poll_id = ?
		ORDER BY submitted_at, student_name
	`, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to query responses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	record.Responses = []types.ResponseRecord{}
	for rows.Next() {
		var r types.ResponseRecord
		if err := rows.Scan(&r.PollID, &r.StudentName, &r.Answer, &r.SubmittedAt, &r.IsValid); err != nil {
			return nil, fmt.Errorf("failed to scan response: %w", err)
		}
		record.Responses = append(record.Responses, r)
	}
	return record, rows.Err()
}

// HealthCheck pings the database and runs a trivial read.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("archive ping failed: %w", err)
	}
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM polls").Scan(&count); err != nil {
		return fmt.Errorf("archive read test failed: %w", err)
	}
	return nil
}

// Close stops the writer and closes the database. Safe to call twice.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.shutdown)
	s.wg.Wait()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close archive: %w", err)
	}
	return nil
}
