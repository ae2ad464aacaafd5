package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"library-console/library"

	"gopkg.in/yaml.v3"
)

// fixture is the YAML shape consumed by the seeder. Users with a
// password become registered users; the rest are basic records.
type fixture struct {
	Users []struct {
		DNI        string `yaml:"dni"`
		GivenName  string `yaml:"given_name"`
		FamilyName string `yaml:"family_name"`
		Role       string `yaml:"role"`
		Password   string `yaml:"password"`
	} `yaml:"users"`
	Books []struct {
		Title  string `yaml:"title"`
		Author string `yaml:"author"`
	} `yaml:"books"`
}

func main() {
	dbPath := flag.String("db", "library.db", "SQLite database path")
	file := flag.String("file", "seed.yaml", "YAML fixture to load")
	flag.Parse()

	data, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading fixture: %v\n", err)
		os.Exit(1)
	}
	var fx fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing fixture: %v\n", err)
		os.Exit(1)
	}

	lib, err := library.NewLibrary(*dbPath, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer lib.Close()

	successCount := 0
	errorCount := 0

	for _, u := range fx.Users {
		fmt.Printf("User %s %s (%s)... ", u.GivenName, u.FamilyName, u.DNI)
		var err error
		if u.Password != "" {
			err = lib.RegisterUser(u.DNI, u.GivenName, u.FamilyName, library.Role(u.Role), u.Password, u.Password)
		} else {
			err = lib.AddUser(u.DNI, u.GivenName, u.FamilyName)
		}
		if err != nil {
			fmt.Printf("ERROR - %v\n", err)
			errorCount++
			continue
		}
		fmt.Println("SUCCESS")
		successCount++
	}

	for _, b := range fx.Books {
		fmt.Printf("Book %q by %s... ", b.Title, b.Author)
		id, err := lib.AddBook(b.Title, b.Author)
		if err != nil {
			fmt.Printf("ERROR - %v\n", err)
			errorCount++
			continue
		}
		fmt.Printf("SUCCESS (ID: %d)\n", id)
		successCount++
	}

	fmt.Printf("\nSeed complete!\n")
	fmt.Printf("Successfully loaded: %d records\n", successCount)
	fmt.Printf("Errors: %d\n", errorCount)

	books, err := lib.ListBooks()
	if err != nil || len(books) == 0 {
		return
	}
	fmt.Println("\nCatalog:")
	fmt.Printf("%-3s %-50s %-30s %s\n", "ID", "Title", "Author", "Status")
	fmt.Println(strings.Repeat("-", 100))
	for _, book := range books {
		fmt.Printf("%-3d %-50s %-30s %s\n", book.ID, truncateString(book.Title, 50), truncateString(book.Author, 30), book.Status())
	}
	if n, err := lib.CountUsers(); err == nil {
		fmt.Printf("\nTotal users: %d\n", n)
	}
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
