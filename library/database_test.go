package library

import (
	"errors"
	"path/filepath"
	"testing"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"), nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustCreateUser(t *testing.T, s *Store, dni string) {
	t.Helper()
	if err := s.CreateUser(&User{DNI: dni, GivenName: "Alice", FamilyName: "Puig"}); err != nil {
		t.Fatalf("create user %s: %v", dni, err)
	}
}

func TestCreateAndGetUser(t *testing.T) {
	s := tempStore(t)

	if err := s.CreateUser(&User{DNI: "12345678Z", GivenName: "Alice", FamilyName: "Puig"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	u, err := s.GetUser("12345678Z")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.GivenName != "Alice" || u.FamilyName != "Puig" {
		t.Fatalf("unexpected names: %q %q", u.GivenName, u.FamilyName)
	}
	if u.Role != RoleReader {
		t.Fatalf("role should default to reader, got %q", u.Role)
	}
	if u.Registered() {
		t.Fatalf("basic user should not be registered")
	}
}

func TestCreateUserInvalidDNI(t *testing.T) {
	s := tempStore(t)

	for _, dni := range []string{"", "1234567Z", "123456789Z", "12345678I", "12345678a"} {
		err := s.CreateUser(&User{DNI: dni, GivenName: "A", FamilyName: "B"})
		if !errors.Is(err, ErrInvalidDNI) {
			t.Fatalf("dni %q: want ErrInvalidDNI, got %v", dni, err)
		}
	}
}

func TestCreateUserDuplicateDNI(t *testing.T) {
	s := tempStore(t)
	mustCreateUser(t, s, "12345678Z")

	err := s.CreateUser(&User{DNI: "12345678Z", GivenName: "Bob", FamilyName: "Soler"})
	if !errors.Is(err, ErrDuplicateDNI) {
		t.Fatalf("want ErrDuplicateDNI, got %v", err)
	}
}

func TestDeleteUserIsIdempotent(t *testing.T) {
	s := tempStore(t)

	// Absent user: still reported as success.
	if err := s.DeleteUser("12345678Z"); err != nil {
		t.Fatalf("delete absent: %v", err)
	}

	mustCreateUser(t, s, "12345678Z")
	if err := s.DeleteUser("12345678Z"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetUser("12345678Z"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound after delete, got %v", err)
	}
}

func TestUpdateUserNamesPartial(t *testing.T) {
	s := tempStore(t)
	mustCreateUser(t, s, "12345678Z")

	if err := s.UpdateUserNames("12345678Z", "Berta", ""); err != nil {
		t.Fatalf("update: %v", err)
	}
	u, _ := s.GetUser("12345678Z")
	if u.GivenName != "Berta" || u.FamilyName != "Puig" {
		t.Fatalf("partial update broke names: %q %q", u.GivenName, u.FamilyName)
	}

	if err := s.UpdateUserNames("87654321X", "A", "B"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound for absent user, got %v", err)
	}
}

func TestListUsersInsertionOrder(t *testing.T) {
	s := tempStore(t)
	dnis := []string{"11111111H", "22222222J", "33333333P"}
	for _, dni := range dnis {
		mustCreateUser(t, s, dni)
	}
	if err := s.CreateUser(&User{
		DNI: "44444444A", GivenName: "Admin", FamilyName: "Root",
		Role: RoleAdmin, Credential: HashSecret("secret"),
	}); err != nil {
		t.Fatalf("create registered: %v", err)
	}

	users, err := s.ListUsers()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 4 {
		t.Fatalf("want 4 users, got %d", len(users))
	}
	for i, dni := range dnis {
		if users[i].DNI != dni {
			t.Fatalf("position %d: want %s, got %s", i, dni, users[i].DNI)
		}
		if users[i].Registered() {
			t.Fatalf("%s should not be registered", dni)
		}
	}
	if !users[3].Registered() || users[3].Role != RoleAdmin {
		t.Fatalf("last user should be a registered admin")
	}
}

func TestAuthenticate(t *testing.T) {
	s := tempStore(t)
	if err := s.CreateUser(&User{
		DNI: "12345678Z", GivenName: "Alice", FamilyName: "Puig",
		Role: RoleAdmin, Credential: HashSecret("hunter42"),
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	mustCreateUser(t, s, "11111111H") // no credential

	role, err := s.Authenticate("12345678Z", "hunter42")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if role != RoleAdmin {
		t.Fatalf("want admin role, got %q", role)
	}

	// Wrong secret, unregistered user and unknown DNI must be
	// indistinguishable.
	for _, tc := range []struct{ dni, secret string }{
		{"12345678Z", "wrong"},
		{"11111111H", "hunter42"},
		{"99999999R", "hunter42"},
	} {
		if _, err := s.Authenticate(tc.dni, tc.secret); !errors.Is(err, ErrAuthFailed) {
			t.Fatalf("dni %s: want ErrAuthFailed, got %v", tc.dni, err)
		}
	}
}

func TestAddBookRoundTrip(t *testing.T) {
	s := tempStore(t)

	id, err := s.AddBook("Solitude", "Marquez")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if id != 1 {
		t.Fatalf("first book should get id 1, got %d", id)
	}

	books, err := s.ListBooks()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(books) != 1 {
		t.Fatalf("want 1 book, got %d", len(books))
	}
	b := books[0]
	if b.Title != "Solitude" || b.Author != "Marquez" {
		t.Fatalf("round trip lost fields: %+v", b)
	}
	if b.OnLoan() || b.Status() != "Available" {
		t.Fatalf("new book should be available, got %q", b.Status())
	}
}

func TestAddBookAcceptsEmptyFields(t *testing.T) {
	s := tempStore(t)

	// The ledger deliberately passes empty free text through.
	if _, err := s.AddBook("", ""); err != nil {
		t.Fatalf("add empty: %v", err)
	}
}

func TestRemoveBook(t *testing.T) {
	s := tempStore(t)

	if err := s.RemoveBook(1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	id, _ := s.AddBook("Solitude", "Marquez")
	if err := s.LendBook(id, "12345678Z"); err != nil {
		t.Fatalf("lend: %v", err)
	}

	// Removing a loaned book succeeds and drops the loan with it.
	if err := s.RemoveBook(id); err != nil {
		t.Fatalf("remove loaned: %v", err)
	}
	if n, _ := s.CountLoans("12345678Z"); n != 0 {
		t.Fatalf("loan should be gone, count=%d", n)
	}
}

func TestUpdateBookPartial(t *testing.T) {
	s := tempStore(t)
	id, _ := s.AddBook("Solitude", "Marquez")
	if err := s.LendBook(id, "12345678Z"); err != nil {
		t.Fatalf("lend: %v", err)
	}

	if err := s.UpdateBook(id, "", "Garcia Marquez"); err != nil {
		t.Fatalf("update: %v", err)
	}
	b, _ := s.GetBook(id)
	if b.Title != "Solitude" || b.Author != "Garcia Marquez" {
		t.Fatalf("partial update broke fields: %+v", b)
	}
	if b.LoanedTo != "12345678Z" {
		t.Fatalf("update must not touch the loan, got %q", b.LoanedTo)
	}

	if err := s.UpdateBook(99, "T", "A"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound for absent book, got %v", err)
	}
}

// TestLendReturnCycle walks one book through its full state machine.
func TestLendReturnCycle(t *testing.T) {
	s := tempStore(t)
	id, _ := s.AddBook("Solitude", "Marquez")

	if err := s.LendBook(id, "12345678Z"); err != nil {
		t.Fatalf("lend: %v", err)
	}
	b, _ := s.GetBook(id)
	if b.LoanedTo != "12345678Z" || b.Status() != "On loan to 12345678Z" {
		t.Fatalf("unexpected loan state: %+v", b)
	}

	// A loaned book cannot be re-lent, neither to another borrower nor
	// to the current one.
	if err := s.LendBook(id, "87654321X"); !errors.Is(err, ErrAlreadyOnLoan) {
		t.Fatalf("want ErrAlreadyOnLoan, got %v", err)
	}
	if err := s.LendBook(id, "12345678Z"); !errors.Is(err, ErrAlreadyOnLoan) {
		t.Fatalf("re-lend to same borrower: want ErrAlreadyOnLoan, got %v", err)
	}

	if err := s.ReturnBook(id); err != nil {
		t.Fatalf("return: %v", err)
	}
	b, _ = s.GetBook(id)
	if b.OnLoan() {
		t.Fatalf("book should be back on the shelf")
	}

	if err := s.ReturnBook(id); !errors.Is(err, ErrNotOnLoan) {
		t.Fatalf("double return: want ErrNotOnLoan, got %v", err)
	}

	// Return followed by a new loan to anyone succeeds.
	if err := s.LendBook(id, "87654321X"); err != nil {
		t.Fatalf("lend after return: %v", err)
	}
}

func TestLendBookNotFound(t *testing.T) {
	s := tempStore(t)
	if err := s.LendBook(42, "12345678Z"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if err := s.ReturnBook(42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

// TestLoanLimit checks the 3-loan cap over a mixed sequence of lends
// and returns.
func TestLoanLimit(t *testing.T) {
	s := tempStore(t)
	const borrower = "11111111H"

	var ids []int64
	for i := 0; i < 5; i++ {
		id, err := s.AddBook("Book", "Author")
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		ids = append(ids, id)
	}

	for _, id := range ids[:3] {
		if err := s.LendBook(id, borrower); err != nil {
			t.Fatalf("lend %d: %v", id, err)
		}
	}
	if n, _ := s.CountLoans(borrower); n != 3 {
		t.Fatalf("want 3 loans, got %d", n)
	}

	if err := s.LendBook(ids[3], borrower); !errors.Is(err, ErrLoanLimitExceeded) {
		t.Fatalf("4th loan: want ErrLoanLimitExceeded, got %v", err)
	}

	// Another borrower is unaffected by the first one's cap.
	if err := s.LendBook(ids[3], "22222222J"); err != nil {
		t.Fatalf("other borrower: %v", err)
	}

	// Returning one frees a slot.
	if err := s.ReturnBook(ids[0]); err != nil {
		t.Fatalf("return: %v", err)
	}
	if err := s.LendBook(ids[4], borrower); err != nil {
		t.Fatalf("lend after freeing a slot: %v", err)
	}
	if n, _ := s.CountLoans(borrower); n != 3 {
		t.Fatalf("cap should hold at 3, got %d", n)
	}
}

// TestStoreReopen verifies ids are not reused and state survives a
// close/reopen of the same file.
func TestStoreReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	s, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	id, _ := s.AddBook("Solitude", "Marquez")
	if err := s.RemoveBook(id); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = NewStore(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	next, _ := s.AddBook("Rayuela", "Cortazar")
	if next <= id {
		t.Fatalf("ids must not be reused: old %d, new %d", id, next)
	}
}
