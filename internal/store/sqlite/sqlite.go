// Package sqlite provides a store.Store kept in a single SQLite database
// file.
package sqlite

import (
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/dekarrin/remora/internal/store"
	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type datastore struct {
	dbFilename string
	db         *sql.DB

	automata *AutomataDB
	sessions *SessionsDB
}

// NewDatastore opens the database in file, creating it and its tables if
// needed. The name ":memory:" gives a database that is discarded on Close.
func NewDatastore(file string) (store.Store, error) {
	st := &datastore{
		dbFilename: file,
	}

	var err error
	st.db, err = sql.Open("sqlite", file)
	if err != nil {
		return nil, wrapDBError(err)
	}
	// every connection to :memory: is its own database
	st.db.SetMaxOpenConns(1)

	st.automata = &AutomataDB{db: st.db}
	if err := st.automata.init(); err != nil {
		st.db.Close()
		return nil, fmt.Errorf("%s: %w", file, err)
	}

	st.sessions = &SessionsDB{db: st.db}
	if err := st.sessions.init(); err != nil {
		st.db.Close()
		return nil, fmt.Errorf("%s: %w", file, err)
	}

	return st, nil
}

func (s *datastore) Automata() store.AutomatonRepository {
	return s.automata
}

func (s *datastore) Sessions() store.SessionRepository {
	return s.sessions
}

func (s *datastore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("%s: %w", s.dbFilename, err)
	}
	return nil
}

func wrapDBError(err error) error {
	sqliteErr := &sqlite.Error{}
	if errors.As(err, &sqliteErr) {
		// extended result codes keep the primary code in the low byte
		primary := sqliteErr.Code() & 0xff
		if primary == sqlite3.SQLITE_CONSTRAINT {
			return store.ErrConstraintViolation
		}
		if msg, ok := sqlite.ErrorCodeString[sqliteErr.Code()]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("%s", sqlite.ErrorCodeString[primary])
	} else if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func convertToDB_UUID(u uuid.UUID) string {
	return u.String()
}

func convertFromDB_UUID(s string, target *uuid.UUID) error {
	u, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	*target = u
	return nil
}

func convertToDB_Time(t time.Time) int64 {
	return t.Unix()
}

func convertFromDB_Time(i int64, target *time.Time) error {
	*target = time.Unix(i, 0)
	return nil
}

func convertToDB_ByteSlice(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func convertFromDB_ByteSlice(s string, target *[]byte) error {
	dec, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return err
	}
	*target = dec
	return nil
}
