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

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"fintrack/internal/backend"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/credential"
	applog "fintrack/internal/log"
)

func main() {
	_ = godotenv.Load()
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(stderr)

	name := fs.String("name", "", "Display name")
	email := fs.String("email", "", "Login email")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	backendFlag := fs.String("backend", "", "Data backend: sqlite or postgres (default DATA_BACKEND)")
	dbPath := fs.String("db", "", "SQLite database path (default SQLITE_DB_PATH)")
	dbURL := fs.String("database-url", "", "Postgres connection URL (default DATABASE_URL)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if strings.TrimSpace(*name) == "" || strings.TrimSpace(*email) == "" {
		fmt.Fprintln(stdout, "Usage: adduser -name <name> -email <email> [-password <password>] [-backend sqlite|postgres] [-db <path>] [-database-url <url>]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: name, email")
	}

	cfg := config.Load()
	if *backendFlag != "" {
		cfg.DataBackend = *backendFlag
	}
	if *dbPath != "" {
		cfg.SQLiteDBPath = *dbPath
	}
	if *dbURL != "" {
		cfg.DatabaseURL = *dbURL
	}
	if cfg.DataBackend == config.BackendMemory {
		return fmt.Errorf("the memory backend cannot persist users; use sqlite or postgres")
	}
	if err := cfg.ValidateStorage(); err != nil {
		return err
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
	if err := credential.ValidatePassword(password); err != nil {
		return err
	}

	ctx := context.Background()
	logger := applog.New(applog.Config{Level: slog.LevelWarn, Output: stderr})
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer res.Cleanup()

	hash, err := credential.NewHasher(cfg.BcryptCost).Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := res.Store.CreateUser(ctx, strings.TrimSpace(*name), strings.TrimSpace(*email), hash)
	if errors.Is(err, core.ErrDuplicateEmail) {
		return fmt.Errorf("user %s already exists", strings.TrimSpace(*email))
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(stdout, "User %s created successfully with ID %d\n", user.Email, user.ID)
	return nil
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
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
