package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/repository"
	"github.com/segyhp/lending-engine/internal/service"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(stderr)

	name := fs.String("name", "", "Display name")
	email := fs.String("email", "", "Email address used to log in")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	role := fs.String("role", string(domain.RoleUser), "USER or ADMIN")
	driver := fs.String("driver", envOr("DATABASE_DRIVER", "sqlite"), "Database driver: postgres or sqlite")
	dsn := fs.String("db", envOr("DATABASE_URL", "lending.db"), "Database URL or SQLite file path")

	if err := fs.Parse(args); err != nil {
		return err
	}

	var missing []string
	if *name == "" {
		missing = append(missing, "name")
	}
	if *email == "" {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		fmt.Fprintln(stdout, "Usage: adduser -name <name> -email <email> [-password <password>] [-role USER|ADMIN] [-driver <driver>] [-db <url>]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: %s", strings.Join(missing, ", "))
	}

	password := *passwordFlag
	if password == "" {
		fmt.Fprint(stdout, "Password: ")
		var err error
		password, err = readPassword(stdin)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(stdout)
	}

	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("password cannot be empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := repository.Open(ctx, repository.Options{
		Driver:      *driver,
		URL:         *dsn,
		AutoMigrate: true,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	users := service.NewAuthService(store, nil, logger)

	user, err := users.CreateUser(ctx, *name, *email, password, domain.Role(strings.ToUpper(*role)))
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(stdout, "User %s created successfully with ID %s and role %s\n", user.Email, user.ID, user.Role)
	return nil
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// Pipes and tests
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
