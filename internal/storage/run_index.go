package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/uav-lab/teststand2-buddy/internal/session"
)

// SavedSession is one row of the run index.
type SavedSession struct {
	ID          int64
	SavedAt     time.Time
	Name        string
	Resolution  int
	OutputScale float64
	Records     int
	Directory   string
}

// RunIndex maintains a sqlite database of saved sessions, giving the bench
// a queryable history of runs across program invocations.
type RunIndex struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewRunIndex creates a run index backed by the database at dbPath. The
// database and its schema are created lazily on first use.
func NewRunIndex(dbPath string) *RunIndex {
	return &RunIndex{dbPath: dbPath}
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *RunIndex) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if err = runSQLCommand(db, schemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *RunIndex) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", s.dbPath))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

// RecordSavedSession appends a saved session to the index and returns its
// row ID.
func (s *RunIndex) RecordSavedSession(ctx context.Context, cfg session.Config, records int, dir string, savedAt time.Time) (id int64, err error) {
	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertSavedSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx, savedAt.UTC(), cfg.Name, cfg.Resolution, cfg.OutputScale, records, dir)
	if err != nil {
		err = fmt.Errorf("inserting saved session: %w", err)
		return
	}

	id, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting saved session ID: %w", err)
	}
	return
}

// SavedSessions returns all indexed sessions ordered by save time.
func (s *RunIndex) SavedSessions(ctx context.Context) (sessions []SavedSession, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectSavedSessionsSQL)
	if err != nil {
		err = fmt.Errorf("querying saved sessions: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var sess SavedSession
		if err = rows.Scan(&sess.ID, &sess.SavedAt, &sess.Name, &sess.Resolution, &sess.OutputScale, &sess.Records, &sess.Directory); err != nil {
			err = fmt.Errorf("scanning saved session: %w", err)
			return
		}
		sessions = append(sessions, sess)
	}

	err = rows.Err()
	return
}

// Close releases the database connections. It is safe to call Close
// multiple times.
func (s *RunIndex) Close() error {
	s.closeOnce.Do(func() {
		if s.writeDB != nil {
			s.closeErr = s.writeDB.Close()
		}
		if s.readDB != nil {
			if err := s.readDB.Close(); err != nil && s.closeErr == nil {
				s.closeErr = err
			}
		}
	})
	return s.closeErr
}
