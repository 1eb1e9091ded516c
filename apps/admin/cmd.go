package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/report"
	"github.com/trezcool/masomo-console/core/user"
	"github.com/trezcool/masomo-console/storage/database/boltsnap"
	inmemdb "github.com/trezcool/masomo-console/storage/database/inmem"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf      *core.Config
	db        *inmemdb.DB
	sqlDB     *sql.DB         // nil unless the postgres engine is configured
	snapshots *boltsnap.Store // nil when snapshots are disabled
	usrRepo   user.Repository
	sources   report.Sources
	out       io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  createuser -name NAME -email EMAIL -role ROLE - create or update a user, the password is prompted")
	fmt.Fprintln(cli.out, "  resetpassword -email EMAIL - reset user's password")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command against the postgres database")
	fmt.Fprintln(cli.out, "  seed [-force] - load the demo data")
	fmt.Fprintln(cli.out, "  export -dataset NAME [-format csv|json] [-o FILE] - export a dataset")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	createUserCmd := flag.NewFlagSet("createuser", flag.ContinueOnError)
	createUserName := createUserCmd.String("name", "", "The user's full name.")
	createUserEmail := createUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	createUserRole := createUserCmd.String("role", "super-admin", "The user's role.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	seedCmd := flag.NewFlagSet("seed", flag.ContinueOnError)
	seedForce := seedCmd.Bool("force", false, "Replace the existing data.")

	exportCmd := flag.NewFlagSet("export", flag.ContinueOnError)
	exportDataset := exportCmd.String("dataset", "", fmt.Sprintf("One of %v.", report.Names()))
	exportFormat := exportCmd.String("format", "csv", "csv or json.")
	exportOutput := exportCmd.String("o", "", "The output file. Defaults to stdout.")

	for _, fs := range []*flag.FlagSet{createUserCmd, resetPasswordCmd, seedCmd, exportCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "createuser":
		if err := createUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *createUserName == "" || *createUserEmail == "" {
			createUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			createUserCmd.Usage()
			return errHelp
		}
		if err = cli.addUser(*createUserName, *createUserEmail, *createUserRole, pwd); err != nil {
			return err
		}
		return cli.persist()

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		if err = cli.resetPassword(*resetPasswordEmail, pwd); err != nil {
			return err
		}
		return cli.persist()

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "seed":
		if err := seedCmd.Parse(args[2:]); err != nil {
			return err
		}
		if err := cli.seed(*seedForce); err != nil {
			return err
		}
		return cli.persist()

	case "export":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *exportDataset == "" {
			exportCmd.Usage()
			return errHelp
		}
		return cli.export(*exportDataset, *exportFormat, *exportOutput)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

// persist saves the database snapshot after a command changed it.
func (cli *commandLine) persist() error {
	if cli.snapshots == nil {
		return nil
	}
	return cli.snapshots.Save(cli.db.Snapshot())
}

func (cli *commandLine) close() {
	if cli.snapshots != nil {
		_ = cli.snapshots.Close()
	}
	if cli.sqlDB != nil {
		_ = cli.sqlDB.Close()
	}
}
