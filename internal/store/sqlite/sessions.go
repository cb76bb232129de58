package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dekarrin/remora/internal/store"
	"github.com/google/uuid"
)

type SessionsDB struct {
	db *sql.DB
}

func (repo *SessionsDB) init() error {
	_, err := repo.db.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT NOT NULL PRIMARY KEY,
		language TEXT NOT NULL,
		source TEXT NOT NULL,
		edits INTEGER NOT NULL,
		created INTEGER NOT NULL,
		modified INTEGER NOT NULL
	);`)
	if err != nil {
		return wrapDBError(err)
	}
	return nil
}

func (repo *SessionsDB) Create(ctx context.Context, s store.Session) (store.Session, error) {
	newUUID, err := uuid.NewRandom()
	if err != nil {
		return store.Session{}, fmt.Errorf("could not generate ID: %w", err)
	}

	stmt, err := repo.db.PrepareContext(ctx, `INSERT INTO sessions (id, language, source, edits, created, modified) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return store.Session{}, wrapDBError(err)
	}
	defer stmt.Close()

	now := time.Now()
	_, err = stmt.ExecContext(
		ctx,
		convertToDB_UUID(newUUID),
		s.Language,
		convertToDB_ByteSlice(s.Source),
		s.Edits,
		convertToDB_Time(now),
		convertToDB_Time(now),
	)
	if err != nil {
		return store.Session{}, wrapDBError(err)
	}

	return repo.GetByID(ctx, newUUID)
}

func (repo *SessionsDB) GetAll(ctx context.Context) ([]store.Session, error) {
	rows, err := repo.db.QueryContext(ctx, `SELECT id, language, source, edits, created, modified FROM sessions ORDER BY id;`)
	if err != nil {
		return nil, wrapDBError(err)
	}
	defer rows.Close()

	var all []store.Session

	for rows.Next() {
		var s store.Session
		var id string
		var source string
		var created int64
		var modified int64

		err = rows.Scan(
			&id,
			&s.Language,
			&source,
			&s.Edits,
			&created,
			&modified,
		)
		if err != nil {
			return nil, wrapDBError(err)
		}

		if err := scanSession(&s, id, source, created, modified); err != nil {
			return all, err
		}
		all = append(all, s)
	}

	if err := rows.Err(); err != nil {
		return all, wrapDBError(err)
	}

	return all, nil
}

func (repo *SessionsDB) GetByID(ctx context.Context, id uuid.UUID) (store.Session, error) {
	s := store.Session{
		ID: id,
	}
	var source string
	var created int64
	var modified int64

	row := repo.db.QueryRowContext(ctx, `SELECT language, source, edits, created, modified FROM sessions WHERE id = ?;`,
		convertToDB_UUID(id),
	)
	err := row.Scan(
		&s.Language,
		&source,
		&s.Edits,
		&created,
		&modified,
	)
	if err != nil {
		return s, wrapDBError(err)
	}

	if err := scanSession(&s, id.String(), source, created, modified); err != nil {
		return s, err
	}
	return s, nil
}

func scanSession(s *store.Session, id, source string, created, modified int64) error {
	err := convertFromDB_UUID(id, &s.ID)
	if err != nil {
		return fmt.Errorf("stored UUID %q is invalid: %w", id, err)
	}
	err = convertFromDB_ByteSlice(source, &s.Source)
	if err != nil {
		return fmt.Errorf("stored source for %s is invalid: %w", id, err)
	}
	err = convertFromDB_Time(created, &s.Created)
	if err != nil {
		return fmt.Errorf("stored created time %d is invalid: %w", created, err)
	}
	err = convertFromDB_Time(modified, &s.Modified)
	if err != nil {
		return fmt.Errorf("stored modified time %d is invalid: %w", modified, err)
	}
	return nil
}

func (repo *SessionsDB) Update(ctx context.Context, id uuid.UUID, s store.Session) (store.Session, error) {
	res, err := repo.db.ExecContext(ctx, `UPDATE sessions SET id=?, language=?, source=?, edits=?, modified=? WHERE id=?;`,
		convertToDB_UUID(s.ID),
		s.Language,
		convertToDB_ByteSlice(s.Source),
		s.Edits,
		convertToDB_Time(time.Now()),
		convertToDB_UUID(id),
	)
	if err != nil {
		return store.Session{}, wrapDBError(err)
	}
	rowsAff, err := res.RowsAffected()
	if err != nil {
		return store.Session{}, wrapDBError(err)
	}
	if rowsAff < 1 {
		return store.Session{}, store.ErrNotFound
	}

	return repo.GetByID(ctx, s.ID)
}

func (repo *SessionsDB) Delete(ctx context.Context, id uuid.UUID) (store.Session, error) {
	curVal, err := repo.GetByID(ctx, id)
	if err != nil {
		return curVal, err
	}

	res, err := repo.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, convertToDB_UUID(id))
	if err != nil {
		return curVal, wrapDBError(err)
	}
	rowsAff, err := res.RowsAffected()
	if err != nil {
		return curVal, wrapDBError(err)
	}
	if rowsAff < 1 {
		return curVal, store.ErrNotFound
	}

	return curVal, nil
}

// Close is a no-op; the database is closed by the datastore that owns it.
func (repo *SessionsDB) Close() error {
	return nil
}
