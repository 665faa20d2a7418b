package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/trezcool/dripfeed/core/course"
)

const dateLayout = "2006-01-02"

// schedule prints a course schedule on behalf of its owner.
// Without enrollmentID, the schedule is anchored today.
func (cli *commandLine) schedule(courseID, enrollmentID string) error {
	ctx := context.Background()

	c, err := cli.repo.GetCourse(ctx, courseID)
	if err != nil {
		return errors.Wrap(err, "getting course")
	}

	var sched course.Schedule
	if enrollmentID == "" {
		sched, err = cli.svc.PreviewSchedule(ctx, c.ID, c.OwnerID)
	} else {
		sched, err = cli.svc.EnrollmentSchedule(ctx, c.ID, enrollmentID, c.OwnerID)
	}
	if err != nil {
		return errors.Wrap(err, "building schedule")
	}

	if !cli.stdoutIsTerminal() {
		enc := json.NewEncoder(cli.out)
		enc.SetIndent("", "  ")
		return enc.Encode(sched)
	}
	return printSchedule(cli, c, sched)
}

func printSchedule(cli *commandLine, c course.Course, sched course.Schedule) error {
	fmt.Fprintf(cli.out, "%s (%s)\n", c.Title, c.ID)
	if !sched.DripEnabled {
		fmt.Fprintln(cli.out, sched.Message)
		return nil
	}
	fmt.Fprintf(cli.out, "anchor: %s\n\n", sched.Anchor.Format(dateLayout))

	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHAPTER\tLESSON\tDAYS\tBASIS\tRELEASE\tAVAILABLE")
	for _, l := range sched.Lessons {
		available := "-"
		if l.IsAvailable != nil {
			available = fmt.Sprint(*l.IsAvailable)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
			l.ChapterTitle, l.LessonTitle, l.DelayDays, l.Basis, l.ReleaseDate.Format(dateLayout), available)
	}
	return w.Flush()
}
