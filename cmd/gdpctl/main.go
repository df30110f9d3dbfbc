// Command gdpctl runs maintenance tasks against the GDP database: schema migrations,
// bootstrap data and administrator accounts.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/edsonosf/gdp/internal/repository"
	"github.com/edsonosf/gdp/internal/seed"
	"github.com/edsonosf/gdp/pkg/config"
	"github.com/edsonosf/gdp/pkg/database"
	"github.com/edsonosf/gdp/pkg/logger"
)

const usage = `usage: gdpctl <command> [flags]

commands:
  migrate up|down|version|force <version>
  create-admin --cpf <cpf> --name <name>
  seed
`

var errUsage = errors.New("invalid arguments")

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
		}
		fmt.Fprintf(os.Stderr, "gdpctl: %v\n", err)
		os.Exit(1)
	}
}

type command struct {
	migrate     *migrateArgs
	createAdmin *createAdminArgs
	seed        bool
}

type migrateArgs struct {
	action  string
	version int
}

type createAdminArgs struct {
	cpf  string
	name string
}

func parse(args []string) (*command, error) {
	if len(args) == 0 {
		return nil, errUsage
	}
	switch args[0] {
	case "migrate":
		if len(args) < 2 {
			return nil, fmt.Errorf("%w: migrate needs an action", errUsage)
		}
		m := &migrateArgs{action: args[1]}
		switch m.action {
		case "up", "down", "version":
		case "force":
			if len(args) < 3 {
				return nil, fmt.Errorf("%w: force needs a version", errUsage)
			}
			v, err := strconv.Atoi(args[2])
			if err != nil {
				return nil, fmt.Errorf("%w: version must be a number", errUsage)
			}
			m.version = v
		default:
			return nil, fmt.Errorf("%w: unknown migrate action %q", errUsage, m.action)
		}
		return &command{migrate: m}, nil
	case "create-admin":
		fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		cpf := fs.String("cpf", "", "administrator CPF")
		name := fs.String("name", "", "administrator name")
		if err := fs.Parse(args[1:]); err != nil {
			return nil, fmt.Errorf("%w: %v", errUsage, err)
		}
		if strings.TrimSpace(*cpf) == "" || strings.TrimSpace(*name) == "" {
			return nil, fmt.Errorf("%w: --cpf and --name are required", errUsage)
		}
		return &command{createAdmin: &createAdminArgs{cpf: *cpf, name: *name}}, nil
	case "seed":
		return &command{seed: true}, nil
	default:
		return nil, fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	cmd, err := parse(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cmd.migrate != nil {
		return runMigrate(database.NewMigrator(database.URL(cfg.Database), logr), cmd.migrate, out)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	seeder := seed.New(repository.NewUserRepository(db), repository.NewStudentRepository(db), cfg.Seed.AdminPassword, logr)

	if cmd.seed {
		if err := seeder.Run(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "seed complete")
		return nil
	}

	password, err := readPassword(out)
	if err != nil {
		return err
	}
	user, err := seeder.CreateAdmin(ctx, cmd.createAdmin.cpf, cmd.createAdmin.name, password)
	if err != nil {
		return err
	}
	logr.Info("administrator saved", zap.String("user_id", user.ID))
	fmt.Fprintf(out, "administrator %s saved with id %s\n", user.Name, user.ID)
	return nil
}

type migrator interface {
	Up() error
	Down() error
	Force(version int) error
	Version() (uint, bool, error)
}

func runMigrate(m migrator, args *migrateArgs, out io.Writer) error {
	switch args.action {
	case "up":
		if err := m.Up(); err != nil {
			return err
		}
	case "down":
		if err := m.Down(); err != nil {
			return err
		}
	case "force":
		if err := m.Force(args.version); err != nil {
			return err
		}
	}
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "schema version %d (dirty=%t)\n", version, dirty)
	return nil
}

// readPassword prompts without echo on a terminal and reads one line otherwise.
func readPassword(out io.Writer) (string, error) {
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}

	fmt.Fprint(out, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	fmt.Fprint(out, "Confirm password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
