package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/unistudious/backend/models"
	"github.com/unistudious/backend/services/users"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

// accountProvisioner is the part of the user service the CLI drives
type accountProvisioner interface {
	Provision(ctx context.Context, in users.CreateInput) (*models.User, bool, error)
	ResetPassword(ctx context.Context, email, password string) error
}

type schemaInitializer interface {
	InitSchema(ctx context.Context) error
}

type commandLine struct {
	accounts accountProvisioner
	schema   schemaInitializer
	out      io.Writer
	logger   *zap.Logger
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate                                   - create the database schema")
	fmt.Fprintln(cli.out, "  adduser -email E -first F -last L [-admin|-professor] [-level L -section S] [-speciality S]")
	fmt.Fprintln(cli.out, "                                            - create or update an account, the password is prompted next")
	fmt.Fprintln(cli.out, "  resetpassword -email E                    - reset an account's password")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "migrate":
		return cli.migrate(ctx)
	case "adduser":
		return cli.addUser(ctx, args[2:])
	case "resetpassword":
		return cli.resetPassword(ctx, args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) migrate(ctx context.Context) error {
	if err := cli.schema.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	cli.logger.Info("schema initialized")
	return nil
}

func (cli *commandLine) addUser(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(cli.out)
	email := fs.String("email", "", "The account email")
	first := fs.String("first", "", "First name")
	last := fs.String("last", "", "Last name")
	isAdmin := fs.Bool("admin", false, "Create an admin account")
	isProfessor := fs.Bool("professor", false, "Create a professor account")
	level := fs.String("level", "", "Student school level")
	section := fs.String("section", "", "Student section")
	speciality := fs.String("speciality", "", "Professor speciality")
	if err := fs.Parse(args); err != nil {
		return errHelp
	}
	if *email == "" || *first == "" || *last == "" || (*isAdmin && *isProfessor) {
		fs.Usage()
		return errHelp
	}

	in := users.CreateInput{
		FirstName: *first,
		LastName:  *last,
		Email:     *email,
		Role:      models.RoleStudent,
	}
	switch {
	case *isAdmin:
		in.Role = models.RoleAdmin
	case *isProfessor:
		in.Role = models.RoleProfessor
		in.Speciality = optional(*speciality)
	default:
		in.SchoolLevel = optional(*level)
		in.Section = optional(*section)
	}

	pwd, err := cli.promptPassword()
	if err != nil {
		return err
	}
	if pwd == "" {
		fs.Usage()
		return errHelp
	}
	in.Password = pwd

	user, created, err := cli.accounts.Provision(ctx, in)
	if err != nil {
		return err
	}
	if created {
		cli.logger.Info("account created", zap.String("email", user.Email), zap.String("role", string(user.Role)))
	} else {
		cli.logger.Info("account updated", zap.String("email", user.Email), zap.String("role", string(user.Role)))
	}
	return nil
}

func (cli *commandLine) resetPassword(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	fs.SetOutput(cli.out)
	email := fs.String("email", "", "The account email. The password will be prompted next.")
	if err := fs.Parse(args); err != nil {
		return errHelp
	}
	if *email == "" {
		fs.Usage()
		return errHelp
	}

	pwd, err := cli.promptPassword()
	if err != nil {
		return err
	}
	if pwd == "" {
		fs.Usage()
		return errHelp
	}

	if err := cli.accounts.ResetPassword(ctx, *email, pwd); err != nil {
		return err
	}
	cli.logger.Info("password reset", zap.String("email", *email))
	return nil
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(pwd), nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
