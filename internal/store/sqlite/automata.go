package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dekarrin/remora/internal/store"
	"github.com/google/uuid"
)

type AutomataDB struct {
	db *sql.DB
}

func (repo *AutomataDB) init() error {
	_, err := repo.db.Exec(`CREATE TABLE IF NOT EXISTS automata (
		id TEXT NOT NULL PRIMARY KEY,
		grammar_hash TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		data TEXT NOT NULL,
		created INTEGER NOT NULL
	);`)
	if err != nil {
		return wrapDBError(err)
	}

	return nil
}

func (repo *AutomataDB) Create(ctx context.Context, a store.Automaton) (store.Automaton, error) {
	newUUID, err := uuid.NewRandom()
	if err != nil {
		return store.Automaton{}, fmt.Errorf("could not generate ID: %w", err)
	}

	stmt, err := repo.db.PrepareContext(ctx, `INSERT INTO automata (id, grammar_hash, name, data, created) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return store.Automaton{}, wrapDBError(err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(
		ctx,
		convertToDB_UUID(newUUID),
		a.GrammarHash,
		a.Name,
		convertToDB_ByteSlice(a.Data),
		convertToDB_Time(time.Now()),
	)
	if err != nil {
		return store.Automaton{}, wrapDBError(err)
	}

	return repo.GetByID(ctx, newUUID)
}

func (repo *AutomataDB) GetAll(ctx context.Context) ([]store.Automaton, error) {
	rows, err := repo.db.QueryContext(ctx, `SELECT id, grammar_hash, name, data, created FROM automata ORDER BY id;`)
	if err != nil {
		return nil, wrapDBError(err)
	}
	defer rows.Close()

	var all []store.Automaton

	for rows.Next() {
		var id string
		var a store.Automaton
		var data string
		var created int64

		err = rows.Scan(
			&id,
			&a.GrammarHash,
			&a.Name,
			&data,
			&created,
		)
		if err != nil {
			return nil, wrapDBError(err)
		}

		err = convertFromDB_UUID(id, &a.ID)
		if err != nil {
			return all, fmt.Errorf("stored UUID %q is invalid: %w", id, err)
		}
		err = convertFromDB_ByteSlice(data, &a.Data)
		if err != nil {
			return all, fmt.Errorf("stored data for %s is invalid: %w", id, err)
		}
		err = convertFromDB_Time(created, &a.Created)
		if err != nil {
			return all, fmt.Errorf("stored created time %d is invalid: %w", created, err)
		}

		all = append(all, a)
	}

	if err := rows.Err(); err != nil {
		return all, wrapDBError(err)
	}

	return all, nil
}

func (repo *AutomataDB) GetByID(ctx context.Context, id uuid.UUID) (store.Automaton, error) {
	row := repo.db.QueryRowContext(ctx, `SELECT grammar_hash FROM automata WHERE id = ?;`,
		convertToDB_UUID(id),
	)
	var hash string
	if err := row.Scan(&hash); err != nil {
		return store.Automaton{}, wrapDBError(err)
	}

	return repo.GetByHash(ctx, hash)
}

func (repo *AutomataDB) GetByHash(ctx context.Context, hash string) (store.Automaton, error) {
	a := store.Automaton{
		GrammarHash: hash,
	}
	var id string
	var data string
	var created int64

	row := repo.db.QueryRowContext(ctx, `SELECT id, name, data, created FROM automata WHERE grammar_hash = ?;`,
		hash,
	)
	err := row.Scan(
		&id,
		&a.Name,
		&data,
		&created,
	)
	if err != nil {
		return a, wrapDBError(err)
	}

	err = convertFromDB_UUID(id, &a.ID)
	if err != nil {
		return a, fmt.Errorf("stored UUID %q is invalid: %w", id, err)
	}
	err = convertFromDB_ByteSlice(data, &a.Data)
	if err != nil {
		return a, fmt.Errorf("stored data for %s is invalid: %w", id, err)
	}
	err = convertFromDB_Time(created, &a.Created)
	if err != nil {
		return a, fmt.Errorf("stored created time %d is invalid: %w", created, err)
	}

	return a, nil
}

func (repo *AutomataDB) Delete(ctx context.Context, id uuid.UUID) (store.Automaton, error) {
	curVal, err := repo.GetByID(ctx, id)
	if err != nil {
		return curVal, err
	}

	res, err := repo.db.ExecContext(ctx, `DELETE FROM automata WHERE id = ?`, convertToDB_UUID(id))
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
func (repo *AutomataDB) Close() error {
	return nil
}
