package library

// Role classifies what a logged-in user may do at the console.
type Role string

const (
	RoleReader Role = "reader"
	RoleAdmin  Role = "admin"
)

// NoLoan is the sentinel stored in books.loaned_to for a book on the
// shelf. The DNI domain never contains a bare "0".
const NoLoan = "0"

// User is a library user keyed by DNI. A registered user additionally
// carries a credential digest and may log in; a basic user is
// record-keeping only.
type User struct {
	DNI        string `db:"dni"`
	GivenName  string `db:"given_name"`
	FamilyName string `db:"family_name"`
	Credential string `db:"credential"`
	Role       Role   `db:"role"`
}

// Registered reports whether the user can authenticate.
func (u *User) Registered() bool { return u.Credential != "" }

// Book represents a catalog entry and its current loan state.
type Book struct {
	ID       int64  `db:"id"`
	Title    string `db:"title"`
	Author   string `db:"author"`
	LoanedTo string `db:"loaned_to"`
}

// OnLoan reports whether the book is currently lent out.
func (b *Book) OnLoan() bool { return b.LoanedTo != NoLoan }

// Status renders the loan state for listings.
func (b *Book) Status() string {
	if b.OnLoan() {
		return "On loan to " + b.LoanedTo
	}
	return "Available"
}

// Session is the result of a successful login, held by the console for
// the duration of one run. It is never persisted.
type Session struct {
	DNI  string
	Role Role
}
