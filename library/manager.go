package library

import "go.uber.org/zap"

// Library is a thin façade over the Store, keeping console code simple.
type Library struct {
	store *Store
}

// NewLibrary opens (or creates) the SQLite database at dbPath.
func NewLibrary(dbPath string, logger *zap.Logger) (*Library, error) {
	store, err := NewStore(dbPath, logger)
	if err != nil {
		return nil, err
	}
	return &Library{store: store}, nil
}

// Close closes the underlying store.
func (l *Library) Close() error { return l.store.Close() }

// ------------------ Users ------------------

// AddUser records a basic user without login capability.
func (l *Library) AddUser(dni, givenName, familyName string) error {
	return l.store.CreateUser(&User{
		DNI:        dni,
		GivenName:  givenName,
		FamilyName: familyName,
		Role:       RoleReader,
	})
}

// RegisterUser records a user who can log in. The secret must pass the
// registration rules; a role other than reader or admin silently falls
// back to reader.
func (l *Library) RegisterUser(dni, givenName, familyName string, role Role, secret, confirm string) error {
	if err := ValidateNewSecret(secret, confirm); err != nil {
		return err
	}
	if role != RoleReader && role != RoleAdmin {
		role = RoleReader
	}
	return l.store.CreateUser(&User{
		DNI:        dni,
		GivenName:  givenName,
		FamilyName: familyName,
		Credential: HashSecret(secret),
		Role:       role,
	})
}

func (l *Library) GetUser(dni string) (*User, error) { return l.store.GetUser(dni) }
func (l *Library) DeleteUser(dni string) error       { return l.store.DeleteUser(dni) }
func (l *Library) ListUsers() ([]*User, error)       { return l.store.ListUsers() }
func (l *Library) CountUsers() (int, error)          { return l.store.CountUsers() }

func (l *Library) UpdateUserNames(dni, givenName, familyName string) error {
	return l.store.UpdateUserNames(dni, givenName, familyName)
}

// ------------------ Session ------------------

// Login validates a DNI/secret pair and yields the session the console
// routes menus by. Failures are undifferentiated.
func (l *Library) Login(dni, secret string) (*Session, error) {
	role, err := l.store.Authenticate(dni, secret)
	if err != nil {
		return nil, err
	}
	return &Session{DNI: dni, Role: role}, nil
}

// ------------------ Books ------------------

func (l *Library) AddBook(title, author string) (int64, error) { return l.store.AddBook(title, author) }
func (l *Library) GetBook(id int64) (*Book, error)             { return l.store.GetBook(id) }
func (l *Library) RemoveBook(id int64) error                   { return l.store.RemoveBook(id) }
func (l *Library) ListBooks() ([]*Book, error)                 { return l.store.ListBooks() }

func (l *Library) UpdateBook(id int64, title, author string) error {
	return l.store.UpdateBook(id, title, author)
}

// ------------------ Circulation ------------------

func (l *Library) LendBook(id int64, dni string) error { return l.store.LendBook(id, dni) }
func (l *Library) ReturnBook(id int64) error           { return l.store.ReturnBook(id) }
func (l *Library) CountLoans(dni string) (int, error)  { return l.store.CountLoans(dni) }
