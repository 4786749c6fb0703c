// admingate-bootstrap creates an admin account in the identity database.
// There is no shipped default credential; this tool is the only way to seed
// the first account. The password is read from stdin, never from a flag, so
// it stays out of shell history and process listings.
//
//	admingate-bootstrap -db admingate.db -handle root -name "Site Owner" -role super_admin
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/harborcms/admingate"
	"github.com/harborcms/admingate/adminstore"
	"github.com/harborcms/admingate/password"
)

func main() {
	var (
		dbPath  = flag.String("db", "admingate.db", "SQLite database path")
		handle  = flag.String("handle", "", "login handle (required)")
		name    = flag.String("name", "", "display name")
		roleStr = flag.String("role", string(admingate.RoleAdmin), "role: admin or super_admin")
	)
	flag.Parse()

	if *handle == "" {
		fmt.Fprintln(os.Stderr, "error: -handle is required")
		flag.Usage()
		os.Exit(2)
	}
	role := admingate.Role(*roleStr)
	if !role.Valid() {
		fmt.Fprintf(os.Stderr, "error: unknown role %q\n", *roleStr)
		os.Exit(2)
	}
	displayName := *name
	if displayName == "" {
		displayName = *handle
	}

	secret, err := readSecret()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	hasher, err := password.NewHasher(password.DefaultConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	hash, err := hasher.Hash(secret)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	store, err := adminstore.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: open %s: %v\n", *dbPath, err)
		os.Exit(1)
	}

	id, err := store.Create(context.Background(), *handle, displayName, role, hash)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("created %s admin %q (id %s)\n", role, *handle, id)
}

// readSecret reads the password twice from stdin and requires both entries
// to match.
func readSecret() (string, error) {
	reader := bufio.NewReader(os.Stdin)

	fmt.Fprint(os.Stderr, "password: ")
	first, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	fmt.Fprint(os.Stderr, "confirm: ")
	second, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}

	first = strings.TrimRight(first, "\r\n")
	second = strings.TrimRight(second, "\r\n")
	if first != second {
		return "", fmt.Errorf("entries do not match")
	}
	if first == "" {
		return "", fmt.Errorf("empty password")
	}
	return first, nil
}
