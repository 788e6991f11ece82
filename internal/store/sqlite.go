package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	kerrors "github.com/PolarWolf314/kaitiaki/internal/errors"
	logger "github.com/PolarWolf314/kaitiaki/internal/logging"

	_ "modernc.org/sqlite"
)

const (
	// DriverModernc is the pure Go driver and the default.
	DriverModernc = "sqlite"
	// DriverMattn is the cgo driver.
	DriverMattn = "sqlite3"
)

// SQLiteStore implements Store on a single SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	logger logger.Logger
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// NewSQLiteStore opens the vault at path with the named driver, creating the
// file, its parent directory and the schema if needed. An empty driver selects
// DriverModernc.
func NewSQLiteStore(path, driver string, log logger.Logger) (*SQLiteStore, error) {
	if driver == "" {
		driver = DriverModernc
	}
	if !slices.Contains(sql.Drivers(), driver) {
		return nil, fmt.Errorf("%w: sqlite driver %q is not available in this build", kerrors.ErrStorage, driver)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("%w: creating vault directory: %v", kerrors.ErrStorage, err)
		}
	}

	// SQLite would create the file world-readable; create it private first.
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("%w: creating vault file: %v", kerrors.ErrStorage, err)
	}
	f.Close()

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening vault: %v", kerrors.ErrStorage, err)
	}
	// One connection keeps transactions and pragmas on the same handle.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA secure_delete=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: enabling secure delete: %v", kerrors.ErrStorage, err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: log,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: creating schema: %v", kerrors.ErrStorage, err)
	}

	log.Debugf("Opened vault %s with driver %s", path, driver)
	return s, nil
}

// createSchema creates the login table if it doesn't exist.
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS login (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			site TEXT,
			username TEXT,
			password TEXT NOT NULL
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) MasterKeyExists(ctx context.Context) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM login WHERE id = ?", ReservedID).Scan(&n)
	if err != nil {
		return false, storageError("checking master key", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) MasterKey(ctx context.Context) (string, error) {
	var hash sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT password FROM login WHERE id = ?", ReservedID).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: master key", kerrors.ErrRecordNotFound)
	}
	if err != nil {
		return "", storageError("reading master key", err)
	}
	return hash.String, nil
}

func (s *SQLiteStore) SetMasterKey(ctx context.Context, hash string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO login (id, site, username, password) VALUES (?, ?, ?, ?)",
		ReservedID, masterKeySite, masterKeyUsername, hash,
	)
	if err != nil {
		return storageError("creating master key", err)
	}
	s.logger.Debugf("Master key record created")
	return nil
}

func (s *SQLiteStore) UpdateMasterKey(ctx context.Context, hash string) error {
	return updateMasterKey(ctx, s.db, hash)
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM login WHERE id != ?", ReservedID).Scan(&n)
	if err != nil {
		return 0, storageError("counting records", err)
	}
	return n, nil
}

// Insert adds a record and returns its id. The master key row must already
// exist so that no credential can ever be assigned the reserved id.
func (s *SQLiteStore) Insert(ctx context.Context, site, username *string, password string) (int64, error) {
	exists, err := s.MasterKeyExists(ctx)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, fmt.Errorf("%w: vault has no master key", kerrors.ErrNotAuthenticated)
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO login (site, username, password) VALUES (?, ?, ?)",
		nullString(site), nullString(username), password,
	)
	if err != nil {
		return 0, storageError("inserting record", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageError("reading inserted id", err)
	}

	s.logger.Debugf("Inserted record %d", id)
	return id, nil
}

// Update sets one column of a record. Updating the id column is rejected with
// ErrInvalidField; a missing or reserved id yields ErrRecordNotFound.
func (s *SQLiteStore) Update(ctx context.Context, field Field, value string, id int64) error {
	return updateField(ctx, s.db, field, value, id)
}

// Delete removes a record. A missing or reserved id yields ErrRecordNotFound.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	if id == ReservedID {
		return fmt.Errorf("%w: id %d", kerrors.ErrRecordNotFound, id)
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM login WHERE id = ? AND id != ?", id, ReservedID)
	if err != nil {
		return storageError("deleting record", err)
	}
	if err := requireAffected(res, id); err != nil {
		return err
	}
	s.logger.Debugf("Deleted record %d", id)
	return nil
}

// FirstCiphertext returns the password of the lowest user record. found is
// false for a vault with no records.
func (s *SQLiteStore) FirstCiphertext(ctx context.Context) (string, bool, error) {
	var password string
	err := s.db.QueryRowContext(ctx,
		"SELECT password FROM login WHERE id > ? ORDER BY id LIMIT 1", ReservedID,
	).Scan(&password)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storageError("reading first record", err)
	}
	return password, true, nil
}

// List returns every user record ordered by id.
func (s *SQLiteStore) List(ctx context.Context) ([]Record, error) {
	return s.query(ctx,
		"SELECT id, site, username, password FROM login WHERE id != ? ORDER BY id",
		ReservedID,
	)
}

// FindBy returns the records whose field equals value exactly. For FieldID,
// value must be an integer.
func (s *SQLiteStore) FindBy(ctx context.Context, field Field, value string) ([]Record, error) {
	column, err := column(field)
	if err != nil {
		return nil, err
	}

	var arg any = value
	if field == FieldID {
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: id %q is not a number", kerrors.ErrInvalidArguments, value)
		}
		arg = id
	}

	// column comes from the allow-list, never from caller text.
	query := "SELECT id, site, username, password FROM login WHERE " + column + " = ? AND id != ? ORDER BY id"
	return s.query(ctx, query, arg, ReservedID)
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageError("querying records", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var r Record
		var site, username, password sql.NullString
		if err := rows.Scan(&r.ID, &site, &username, &password); err != nil {
			return nil, storageError("scanning record", err)
		}
		if site.Valid {
			r.Site = &site.String
		}
		if username.Valid {
			r.Username = &username.String
		}
		r.Password = password.String
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterating records", err)
	}
	return records, nil
}

// Begin starts a transaction.
func (s *SQLiteStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageError("beginning transaction", err)
	}
	return &sqliteTx{tx: tx, logger: s.logger}, nil
}

type sqliteTx struct {
	tx     *sql.Tx
	logger logger.Logger
}

func (t *sqliteTx) UpdateMasterKey(ctx context.Context, hash string) error {
	return updateMasterKey(ctx, t.tx, hash)
}

func (t *sqliteTx) Update(ctx context.Context, field Field, value string, id int64) error {
	return updateField(ctx, t.tx, field, value, id)
}

func (t *sqliteTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return storageError("committing transaction", err)
	}
	t.logger.Debugf("Transaction committed")
	return nil
}

func (t *sqliteTx) Rollback() error {
	err := t.tx.Rollback()
	if err == nil || errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return storageError("rolling back transaction", err)
}

func updateMasterKey(ctx context.Context, db execer, hash string) error {
	res, err := db.ExecContext(ctx, "UPDATE login SET password = ? WHERE id = ?", hash, ReservedID)
	if err != nil {
		return storageError("updating master key", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageError("updating master key", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: master key", kerrors.ErrRecordNotFound)
	}
	return nil
}

func updateField(ctx context.Context, db execer, field Field, value string, id int64) error {
	if field == FieldID {
		return fmt.Errorf("%w: id cannot be updated", kerrors.ErrInvalidField)
	}
	column, err := column(field)
	if err != nil {
		return err
	}
	if id == ReservedID {
		return fmt.Errorf("%w: id %d", kerrors.ErrRecordNotFound, id)
	}

	res, err := db.ExecContext(ctx, "UPDATE login SET "+column+" = ? WHERE id = ? AND id != ?", value, id, ReservedID)
	if err != nil {
		return storageError("updating record", err)
	}
	return requireAffected(res, id)
}

func column(field Field) (string, error) {
	switch field {
	case FieldID, FieldSite, FieldUsername, FieldPassword:
		return string(field), nil
	default:
		return "", fmt.Errorf("%w: %q", kerrors.ErrInvalidField, string(field))
	}
}

func requireAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storageError("reading affected rows", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", kerrors.ErrRecordNotFound, id)
	}
	return nil
}

func storageError(action string, err error) error {
	return fmt.Errorf("%w: %s: %v", kerrors.ErrStorage, action, err)
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

var _ Store = (*SQLiteStore)(nil)
