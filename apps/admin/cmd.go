package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/student"
)

var errHelp = errors.New("help provided")

type (
	reportRunner interface {
		Run(ctx context.Context, asOf time.Time) error
	}

	commandLine struct {
		conf     *core.Config
		db       *sql.DB // nil with the memory driver
		students *student.Service
		monthly  reportRunner
		validate *validator.Validate
		out      io.Writer
	}
)

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, version, redo, ...)")
	fmt.Fprintln(cli.out, "  addstudent -name NAME [-class CLASS] [-email EMAIL] [-phone PHONE] - register a student")
	fmt.Fprintln(cli.out, "  monthlyreport [-month YYYY-MM] - send the monthly absence reports (current month by default)")
	fmt.Fprintln(cli.out, "  token -name NAME -role admin|teacher|parent [-ttl DURATION] - issue an API token")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addStudentCmd := flag.NewFlagSet("addstudent", flag.ContinueOnError)
	addStudentCmd.SetOutput(cli.out)
	studentName := addStudentCmd.String("name", "", "The student's full name.")
	studentClass := addStudentCmd.String("class", "", "The student's class.")
	guardianEmail := addStudentCmd.String("email", "", "The guardian's email address.")
	guardianPhone := addStudentCmd.String("phone", "", "The guardian's phone number (E.164).")

	monthlyReportCmd := flag.NewFlagSet("monthlyreport", flag.ContinueOnError)
	monthlyReportCmd.SetOutput(cli.out)
	reportMonth := monthlyReportCmd.String("month", "", "The month to report on, as YYYY-MM.")

	tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenCmd.SetOutput(cli.out)
	tokenName := tokenCmd.String("name", "", "The name recorded on the caller's writes.")
	tokenRoles := tokenCmd.String("role", "", "Comma separated roles: admin, teacher, parent.")
	tokenTTL := tokenCmd.Duration("ttl", cli.conf.Server.JWTExpirationDelta, "How long the token is valid.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "addstudent":
		if err := addStudentCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *studentName == "" {
			addStudentCmd.Usage()
			return errHelp
		}
		return cli.addStudent(student.NewStudent{
			Name:          *studentName,
			ClassName:     *studentClass,
			GuardianEmail: *guardianEmail,
			GuardianPhone: *guardianPhone,
		})
	case "monthlyreport":
		if err := monthlyReportCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.monthlyReport(*reportMonth)
	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenName == "" || *tokenRoles == "" {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.token(*tokenName, strings.Split(*tokenRoles, ","), *tokenTTL)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) token(name string, roles []string, ttl time.Duration) error {
	for i, role := range roles {
		role = core.CleanString(role, true /* lower */)
		switch role {
		case echoapi.RoleAdmin, echoapi.RoleTeacher, echoapi.RoleParent:
			roles[i] = role
		default:
			return fmt.Errorf("unknown role %q", role)
		}
	}
	claims := echoapi.NewClaims(cli.conf.AppName, "cli:"+name, name, ttl, roles...)
	token, err := echoapi.GenerateToken(claims, cli.conf.Server.SecretKey)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, token)
	return nil
}
