package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/dripfeed/core/course"
)

// notifyReleases is meant to run once a day, from cron or any job runner.
func (cli *commandLine) notifyReleases(date string) error {
	day := course.NowFunc()
	if date != "" {
		var err error
		if day, err = time.Parse(dateLayout, date); err != nil {
			return errors.Wrapf(err, "invalid date %q", date)
		}
	}

	sent, err := cli.svc.NotifyReleases(context.Background(), day)
	if err != nil {
		return errors.Wrap(err, "notifying releases")
	}
	cli.logger.Info(fmt.Sprintf("release notices sent for %s: %d", day.Format(dateLayout), sent))
	fmt.Fprintf(cli.out, "%d release notice(s) sent for %s\n", sent, day.Format(dateLayout))
	return nil
}
