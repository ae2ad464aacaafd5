package library

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// maxLoans caps how many books one borrower may hold at once.
const maxLoans = 3

// Store provides high-level helpers around a SQLite connection. All
// components share the one handle; it is opened at process start and
// closed at process end.
type Store struct {
	db  *sqlx.DB
	log *zap.Logger

	addUserStmt *sqlx.Stmt
	addBookStmt *sqlx.Stmt
}

// NewStore opens (or creates) the SQLite database at dbPath, applies
// schema migrations, and prepares common statements. A nil logger
// disables logging.
func NewStore(dbPath string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	store := &Store{db: db, log: logger}
	if err := store.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases prepared statements and closes the DB.
func (s *Store) Close() error {
	if s.addUserStmt != nil {
		s.addUserStmt.Close()
	}
	if s.addBookStmt != nil {
		s.addBookStmt.Close()
	}
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sqlx.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
            dni TEXT PRIMARY KEY,
            given_name TEXT NOT NULL,
            family_name TEXT NOT NULL,
            credential TEXT,
            role TEXT CHECK(role IN ('reader','admin'))
        );`,
		`CREATE TABLE IF NOT EXISTS books (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            loaned_to TEXT NOT NULL DEFAULT '0'
        );`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (s *Store) prepareStatements() error {
	var err error
	if s.addUserStmt, err = s.db.Preparex(`INSERT INTO users(dni,given_name,family_name,credential,role) VALUES(?,?,?,?,?)`); err != nil {
		return err
	}
	if s.addBookStmt, err = s.db.Preparex(`INSERT INTO books(title,author) VALUES(?,?)`); err != nil {
		return err
	}
	return nil
}

func isConstraintErr(err error) bool {
	var serr sqlite3.Error
	return errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

// CreateUser inserts a user record. The DNI must have a valid shape and
// must not collide with an existing user; the role defaults to reader
// when unset.
func (s *Store) CreateUser(u *User) error {
	if !ValidDNI(u.DNI) {
		return ErrInvalidDNI
	}

	role := u.Role
	if role != RoleReader && role != RoleAdmin {
		role = RoleReader
	}
	var credential any
	if u.Credential != "" {
		credential = u.Credential
	}

	if _, err := s.addUserStmt.Exec(u.DNI, u.GivenName, u.FamilyName, credential, string(role)); err != nil {
		if isConstraintErr(err) {
			return ErrDuplicateDNI
		}
		return fmt.Errorf("insert user: %w", err)
	}
	s.log.Info("user created",
		zap.String("dni", u.DNI),
		zap.String("role", string(role)),
		zap.Bool("registered", u.Credential != ""))
	return nil
}

// GetUser fetches a single user by DNI.
func (s *Store) GetUser(dni string) (*User, error) {
	var u User
	err := s.db.Get(&u, `SELECT dni, given_name, family_name, COALESCE(credential,'') AS credential, role FROM users WHERE dni=?`, dni)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// DeleteUser removes the record for dni. Deleting an absent user is
// not an error. Books lent to the user keep their loan entry.
func (s *Store) DeleteUser(dni string) error {
	if _, err := s.db.Exec(`DELETE FROM users WHERE dni=?`, dni); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	s.log.Info("user deleted", zap.String("dni", dni))
	return nil
}

// UpdateUserNames applies a partial name update; an empty value keeps
// the stored one.
func (s *Store) UpdateUserNames(dni, givenName, familyName string) error {
	current, err := s.GetUser(dni)
	if err != nil {
		return err
	}
	if givenName == "" {
		givenName = current.GivenName
	}
	if familyName == "" {
		familyName = current.FamilyName
	}
	if _, err := s.db.Exec(`UPDATE users SET given_name=?, family_name=? WHERE dni=?`, givenName, familyName, dni); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// ListUsers returns all users in insertion order.
func (s *Store) ListUsers() ([]*User, error) {
	var users []*User
	if err := s.db.Select(&users, `SELECT dni, given_name, family_name, COALESCE(credential,'') AS credential, role FROM users ORDER BY rowid`); err != nil {
		return nil, err
	}
	return users, nil
}

// CountUsers returns the number of user records.
func (s *Store) CountUsers() (int, error) {
	var n int
	if err := s.db.Get(&n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, err
	}
	return n, nil
}

// Authenticate checks a DNI/secret pair and yields the user's role.
// Unknown DNI, a user with no credential and a wrong secret all fail
// with the same ErrAuthFailed.
func (s *Store) Authenticate(dni, secret string) (Role, error) {
	u, err := s.GetUser(dni)
	if errors.Is(err, ErrNotFound) {
		return "", ErrAuthFailed
	}
	if err != nil {
		return "", err
	}
	if !VerifySecret(secret, u.Credential) {
		s.log.Info("login rejected", zap.String("dni", dni))
		return "", ErrAuthFailed
	}
	s.log.Info("login accepted", zap.String("dni", dni), zap.String("role", string(u.Role)))
	return u.Role, nil
}

// ---------------------------------------------------------------------------
// Books and loans
// ---------------------------------------------------------------------------

// AddBook inserts a book on the shelf and returns its assigned id.
// Title and author are stored as given; the ledger does not validate
// free text.
func (s *Store) AddBook(title, author string) (int64, error) {
	res, err := s.addBookStmt.Exec(title, author)
	if err != nil {
		return 0, fmt.Errorf("insert book: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.log.Info("book added", zap.Int64("book_id", id), zap.String("title", title))
	return id, nil
}

// GetBook fetches a single book.
func (s *Store) GetBook(id int64) (*Book, error) {
	var b Book
	err := s.db.Get(&b, `SELECT id, title, author, loaned_to FROM books WHERE id=?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// RemoveBook deletes the book regardless of loan state. An active loan
// is discarded with it.
func (s *Store) RemoveBook(id int64) error {
	res, err := s.db.Exec(`DELETE FROM books WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	s.log.Info("book removed", zap.Int64("book_id", id))
	return nil
}

// UpdateBook applies a partial title/author update; an empty value
// keeps the stored one. The loan state is untouched.
func (s *Store) UpdateBook(id int64, title, author string) error {
	current, err := s.GetBook(id)
	if err != nil {
		return err
	}
	if title == "" {
		title = current.Title
	}
	if author == "" {
		author = current.Author
	}
	if _, err := s.db.Exec(`UPDATE books SET title=?, author=? WHERE id=?`, title, author, id); err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	return nil
}

// ListBooks returns all books ordered by id.
func (s *Store) ListBooks() ([]*Book, error) {
	var books []*Book
	if err := s.db.Select(&books, `SELECT id, title, author, loaned_to FROM books ORDER BY id`); err != nil {
		return nil, err
	}
	return books, nil
}

// CountLoans returns how many books dni currently has on loan.
func (s *Store) CountLoans(dni string) (int, error) {
	var n int
	if err := s.db.Get(&n, `SELECT COUNT(*) FROM books WHERE loaned_to=?`, dni); err != nil {
		return 0, err
	}
	return n, nil
}

// LendBook moves a book from the shelf to the borrower. A book already
// on loan cannot be re-lent, not even to its current borrower, and a
// borrower holding maxLoans books is refused before the transition.
// The borrower's DNI is treated as an opaque key; callers validate its
// shape.
func (s *Store) LendBook(id int64, dni string) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var loanedTo string
	err = tx.Get(&loanedTo, `SELECT loaned_to FROM books WHERE id=?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if loanedTo != NoLoan {
		return ErrAlreadyOnLoan
	}

	var held int
	if err := tx.Get(&held, `SELECT COUNT(*) FROM books WHERE loaned_to=?`, dni); err != nil {
		return err
	}
	if held >= maxLoans {
		return ErrLoanLimitExceeded
	}

	if _, err := tx.Exec(`UPDATE books SET loaned_to=? WHERE id=?`, dni, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.log.Info("book lent", zap.Int64("book_id", id), zap.String("dni", dni))
	return nil
}

// ReturnBook puts a book back on the shelf.
func (s *Store) ReturnBook(id int64) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var loanedTo string
	err = tx.Get(&loanedTo, `SELECT loaned_to FROM books WHERE id=?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if loanedTo == NoLoan {
		return ErrNotOnLoan
	}

	if _, err := tx.Exec(`UPDATE books SET loaned_to=? WHERE id=?`, NoLoan, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.log.Info("book returned", zap.Int64("book_id", id), zap.String("dni", loanedTo))
	return nil
}
