// Package main provides backlogctl, the administrative bootstrap tool.
// It operates directly on the database file, so the first admin account
// can be created before the server has any authenticated user.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/backlogmedia/backlog/internal/access"
	"github.com/backlogmedia/backlog/internal/storage"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "create-admin":
		err = createAdmin(ctx, os.Args[2:])
	case "grant-media":
		err = grant(ctx, os.Args[2:], "grant-media")
	case "grant-collection":
		err = grant(ctx, os.Args[2:], "grant-collection")
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: backlogctl <command> [flags]

commands:
  create-admin      create a verified admin account
  grant-media       grant a user direct access to a media item
  grant-collection  add a user to a collection`)
}

func createAdmin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ExitOnError)
	dbPath := fs.String("db", "backlog.db", "database file")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	first := fs.String("first", "Admin", "first name")
	last := fs.String("last", "User", "last name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return fmt.Errorf("email and password are required")
	}

	store, err := storage.Open(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	hash, err := storage.HashPassword(*password)
	if err != nil {
		return err
	}

	user := &storage.User{
		Email:        *email,
		PasswordHash: hash,
		Name:         storage.PersonName{First: *first, Last: *last},
		Flags:        storage.UserFlags{Verified: true, Admin: true},
	}
	id, err := store.CreateUser(ctx, user)
	if err != nil {
		return err
	}

	fmt.Printf("created admin %s (id %d)\n", *email, id)
	return nil
}

func grant(ctx context.Context, args []string, name string) error {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	dbPath := fs.String("db", "backlog.db", "database file")
	email := fs.String("email", "", "account email")
	id := fs.String("id", "", "media or collection ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *id == "" {
		return fmt.Errorf("email and id are required")
	}

	store, err := storage.Open(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	resolver := access.NewResolver(store)
	switch name {
	case "grant-media":
		err = resolver.GrantMedia(ctx, *email, *id)
	case "grant-collection":
		err = resolver.GrantCollection(ctx, *email, *id)
	}
	if err != nil {
		return err
	}

	fmt.Printf("granted %s to %s\n", *id, *email)
	return nil
}
