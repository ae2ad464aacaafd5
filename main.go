package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"library-console/library"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

var (
	cfgPath string
	dbPath  string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "library-console",
	Short: "Single-operator library management console",
	Long: `library-console tracks users and books, lends and returns books, and
gates its menus behind a login. Administrators manage users and the
catalog; readers list, borrow and return books against their own DNI.`,
	SilenceUsage: true,
	RunE:         runConsole,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "library.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger builds a zap logger writing to the configured log file so
// the interactive prompt stays clean.
func newLogger(cfg *library.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{cfg.Log.Path}
	zcfg.ErrorOutputPaths = []string{cfg.Log.Path}
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else if lvl, err := zapcore.ParseLevel(cfg.Log.Level); err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zcfg.Build()
}

func runConsole(cmd *cobra.Command, args []string) error {
	cfg, err := library.LoadConfig(cfgPath)
	if err != nil {
		return err
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	lib, err := library.NewLibrary(cfg.Database.Path, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer lib.Close()

	scanner := bufio.NewScanner(os.Stdin)

	session := loginLoop(scanner, lib)
	if session == nil {
		return nil
	}

	if session.Role == library.RoleAdmin {
		adminMenu(scanner, lib)
	} else {
		readerMenu(scanner, lib, session)
	}
	return nil
}

// readPassword reads a secret without echoing it.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println()
	return strings.TrimSpace(string(bytePassword)), nil
}

func promptLine(sc *bufio.Scanner, label string) (string, bool) {
	fmt.Print(label)
	if !sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sc.Text()), true
}

// promptBookID parses a book id; malformed input is reported the same
// way as a missing book.
func promptBookID(sc *bufio.Scanner) (int64, bool) {
	raw, ok := promptLine(sc, "Book ID: ")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		fmt.Println("Book not found.")
		return 0, false
	}
	return id, true
}

// loginLoop prompts until a login succeeds or stdin closes. The
// rejection message never says whether the DNI exists.
func loginLoop(sc *bufio.Scanner, lib *library.Library) *library.Session {
	for {
		fmt.Println("\n--- LOGIN ---")
		dni, ok := promptLine(sc, "DNI: ")
		if !ok {
			return nil
		}
		secret, err := readPassword("Password: ")
		if err != nil {
			fmt.Printf("Error reading password: %v\n", err)
			return nil
		}

		session, err := lib.Login(dni, secret)
		if err != nil {
			fmt.Println("Invalid DNI or password.")
			continue
		}

		if user, err := lib.GetUser(dni); err == nil {
			fmt.Printf("Welcome %s %s (%s)\n", user.GivenName, user.FamilyName, session.Role)
		}
		return session
	}
}

func adminMenu(sc *bufio.Scanner, lib *library.Library) {
	for {
		fmt.Println("\n--- Admin Menu ---")
		fmt.Println(" 1. Add user")
		fmt.Println(" 2. Add registered user")
		fmt.Println(" 3. List users")
		fmt.Println(" 4. Delete user")
		fmt.Println(" 5. Add book")
		fmt.Println(" 6. List books")
		fmt.Println(" 7. Delete book")
		fmt.Println(" 8. Lend book")
		fmt.Println(" 9. Return book")
		fmt.Println("10. Update user")
		fmt.Println("11. Update book")
		fmt.Println("12. Exit")

		choice, ok := promptLine(sc, "Select an option: ")
		if !ok {
			return
		}
		switch choice {
		case "1":
			handleAddUser(sc, lib, false)
		case "2":
			handleAddUser(sc, lib, true)
		case "3":
			handleListUsers(lib)
		case "4":
			handleDeleteUser(sc, lib)
		case "5":
			handleAddBook(sc, lib)
		case "6":
			handleListBooks(lib)
		case "7":
			handleDeleteBook(sc, lib)
		case "8":
			handleLend(sc, lib, "")
		case "9":
			handleReturn(sc, lib)
		case "10":
			handleUpdateUser(sc, lib)
		case "11":
			handleUpdateBook(sc, lib)
		case "12":
			fmt.Println("Goodbye!")
			return
		default:
			fmt.Println("Invalid option.")
		}
	}
}

func readerMenu(sc *bufio.Scanner, lib *library.Library, session *library.Session) {
	for {
		fmt.Println("\n--- Reader Menu ---")
		fmt.Println("1. List books")
		fmt.Println("2. Borrow book")
		fmt.Println("3. Return book")
		fmt.Println("4. Exit")

		choice, ok := promptLine(sc, "Select an option: ")
		if !ok {
			return
		}
		switch choice {
		case "1":
			handleListBooks(lib)
		case "2":
			handleLend(sc, lib, session.DNI)
		case "3":
			handleReturn(sc, lib)
		case "4":
			fmt.Println("Goodbye!")
			return
		default:
			fmt.Println("Invalid option.")
		}
	}
}

// handleAddUser collects the shared identity fields, re-prompting until
// they are non-empty and the DNI shape is valid, then records either a
// basic or a registered user.
func handleAddUser(sc *bufio.Scanner, lib *library.Library, registered bool) {
	var dni, givenName, familyName string
	for {
		var ok bool
		if givenName, ok = promptLine(sc, "Given name: "); !ok {
			return
		}
		if familyName, ok = promptLine(sc, "Family name: "); !ok {
			return
		}
		if dni, ok = promptLine(sc, "DNI: "); !ok {
			return
		}
		if givenName == "" || familyName == "" || dni == "" {
			fmt.Println("Error: no field may be empty.")
			continue
		}
		if !library.ValidDNI(dni) {
			fmt.Println("Error: invalid DNI (e.g. 12345678A).")
			continue
		}
		break
	}

	if !registered {
		if err := lib.AddUser(dni, givenName, familyName); err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		fmt.Println("User added.")
		return
	}

	var secret string
	for {
		var err error
		if secret, err = readPassword("Password: "); err != nil {
			fmt.Printf("Error reading password: %v\n", err)
			return
		}
		confirm, err := readPassword("Repeat password: ")
		if err != nil {
			fmt.Printf("Error reading password: %v\n", err)
			return
		}
		if err := library.ValidateNewSecret(secret, confirm); err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		break
	}

	roleInput, ok := promptLine(sc, "Role (reader/admin): ")
	if !ok {
		return
	}
	role := library.Role(strings.ToLower(roleInput))
	if role != library.RoleReader && role != library.RoleAdmin {
		fmt.Println("Invalid role, defaulting to reader.")
		role = library.RoleReader
	}

	if err := lib.RegisterUser(dni, givenName, familyName, role, secret, secret); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("Registered user added.")
}

func handleListUsers(lib *library.Library) {
	users, err := lib.ListUsers()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(users) == 0 {
		fmt.Println("No users.")
		return
	}
	fmt.Println("\n--- Users ---")
	for _, u := range users {
		status := "Not registered"
		if u.Registered() {
			status = "Registered"
		}
		fmt.Printf("%s %s : %s (%s)\n", u.GivenName, u.FamilyName, u.DNI, status)
	}
}

func handleDeleteUser(sc *bufio.Scanner, lib *library.Library) {
	dni, ok := promptLine(sc, "DNI to delete: ")
	if !ok {
		return
	}
	if err := lib.DeleteUser(dni); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("User deleted.")
}

func handleUpdateUser(sc *bufio.Scanner, lib *library.Library) {
	dni, ok := promptLine(sc, "DNI: ")
	if !ok {
		return
	}
	user, err := lib.GetUser(dni)
	if err != nil {
		fmt.Println("User not found.")
		return
	}

	givenName, ok := promptLine(sc, fmt.Sprintf("New given name (enter to keep '%s'): ", user.GivenName))
	if !ok {
		return
	}
	familyName, ok := promptLine(sc, fmt.Sprintf("New family name (enter to keep '%s'): ", user.FamilyName))
	if !ok {
		return
	}

	if err := lib.UpdateUserNames(dni, givenName, familyName); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("User updated.")
}

func handleAddBook(sc *bufio.Scanner, lib *library.Library) {
	title, ok := promptLine(sc, "Title: ")
	if !ok {
		return
	}
	author, ok := promptLine(sc, "Author: ")
	if !ok {
		return
	}
	id, err := lib.AddBook(title, author)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Added book ID %d.\n", id)
}

func handleListBooks(lib *library.Library) {
	books, err := lib.ListBooks()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(books) == 0 {
		fmt.Println("No books.")
		return
	}
	fmt.Println("\n--- Books ---")
	for _, b := range books {
		fmt.Printf("ID: %d, Title: %s, Author: %s, Status: %s\n", b.ID, b.Title, b.Author, b.Status())
	}
}

func handleDeleteBook(sc *bufio.Scanner, lib *library.Library) {
	id, ok := promptBookID(sc)
	if !ok {
		return
	}
	if err := lib.RemoveBook(id); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("Book deleted.")
}

func handleUpdateBook(sc *bufio.Scanner, lib *library.Library) {
	id, ok := promptBookID(sc)
	if !ok {
		return
	}
	book, err := lib.GetBook(id)
	if err != nil {
		fmt.Println("Book not found.")
		return
	}

	title, ok := promptLine(sc, fmt.Sprintf("New title (enter to keep '%s'): ", book.Title))
	if !ok {
		return
	}
	author, ok := promptLine(sc, fmt.Sprintf("New author (enter to keep '%s'): ", book.Author))
	if !ok {
		return
	}

	if err := lib.UpdateBook(id, title, author); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("Book updated.")
}

// handleLend lends a book. Admins are asked for the borrower's DNI and
// its shape is validated here; readers borrow against their session
// DNI.
func handleLend(sc *bufio.Scanner, lib *library.Library, borrower string) {
	id, ok := promptBookID(sc)
	if !ok {
		return
	}
	if borrower == "" {
		dni, ok := promptLine(sc, "Borrower DNI: ")
		if !ok {
			return
		}
		if !library.ValidDNI(dni) {
			fmt.Println("Error: invalid DNI.")
			return
		}
		borrower = dni
	}
	if err := lib.LendBook(id, borrower); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("Book lent.")
}

func handleReturn(sc *bufio.Scanner, lib *library.Library) {
	id, ok := promptBookID(sc)
	if !ok {
		return
	}
	if err := lib.ReturnBook(id); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("Book returned.")
}
