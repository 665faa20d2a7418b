package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/trezcool/dripfeed/core"
	"github.com/trezcool/dripfeed/core/course"
)

var (
	isTerminalFunc = term.IsTerminal // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db     *sql.DB
	repo   course.Repository
	svc    course.ServiceInterface
	out    io.Writer
	logger core.Logger
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  schedule -course ID [-enrollment ID] - print a course drip schedule")
	fmt.Fprintln(cli.out, "  notifyreleases [-date YYYY-MM-DD] - e-mail learners about the lessons released on date (default: today)")
}

// stdoutIsTerminal tells whether the output should be human readable rather than JSON.
func (cli *commandLine) stdoutIsTerminal() bool {
	f, ok := cli.out.(*os.File)
	return ok && isTerminalFunc(int(f.Fd()))
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	scheduleCmd := flag.NewFlagSet("schedule", flag.ExitOnError)
	scheduleCourse := scheduleCmd.String("course", "", "The course id.")
	scheduleEnrollment := scheduleCmd.String("enrollment", "", "An enrollment id: anchors the schedule at its start date & shows lessons availability.")

	notifyCmd := flag.NewFlagSet("notifyreleases", flag.ExitOnError)
	notifyDate := notifyCmd.String("date", "", "The release day, as YYYY-MM-DD. Defaults to today.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "schedule":
		if err := scheduleCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *scheduleCourse == "" {
			scheduleCmd.Usage()
			return errHelp
		}
		return cli.schedule(*scheduleCourse, *scheduleEnrollment)
	case "notifyreleases":
		if err := notifyCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.notifyReleases(*notifyDate)
	default:
		cli.printUsage()
		return errHelp
	}
}
