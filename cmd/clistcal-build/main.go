// Command clistcal-build writes a calendar of the next three days of
// contests on the default resources. Credentials come from the environment
// only, which suits cron and CI use.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"clistcal"
	"clistcal/clist"
	"clistcal/ics"
)

const (
	OutputPath       = "contests.ics"
	PerResourceLimit = 50
	CalendarName     = "CLIST Contests"
	ProductID        = "-//CLIST Import//EN"

	WindowDays = 3
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx); err != nil {
		var appErr *clistcal.Error
		if errors.As(err, &appErr) {
			_, _ = fmt.Fprintln(os.Stderr, appErr.Message)
		} else {
			_, _ = fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	username, err := requireEnv("CLIST_API_USERNAME")
	if err != nil {
		return err
	}
	apiKey, err := requireEnv("CLIST_API_KEY")
	if err != nil {
		return err
	}

	resources, err := clist.ResolveResources(nil)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	endsBefore := now.Add(WindowDays * 24 * time.Hour)

	client := clist.NewClient(username, apiKey)
	contests, err := client.FindContests(ctx, clist.ContestFilter{
		Resources:        resources,
		StartsAfter:      &now,
		EndsBefore:       &endsBefore,
		PerResourceLimit: PerResourceLimit,
		Now:              now,
	})
	if err != nil {
		return err
	}

	contests = clistcal.Deduplicate(contests)
	contests = clistcal.FilterEnded(contests, now)
	clistcal.SortByStart(contests)

	if len(contests) == 0 {
		fmt.Printf("No contests found in the next %d days.\n", WindowDays)
		return nil
	}

	cal := ics.Calendar{Name: CalendarName, ProdID: ProductID}
	var buf bytes.Buffer
	if err := cal.Encode(&buf, contests, now); err != nil {
		return err
	}
	if err := os.WriteFile(OutputPath, buf.Bytes(), 0o644); err != nil {
		return clistcal.Errorf(clistcal.EINTERNAL, "Cannot write %s: %v.", OutputPath, err)
	}

	fmt.Printf("Wrote %d contest(s) to %s\n", len(contests), OutputPath)

	return nil
}

func requireEnv(name string) (string, error) {
	value := os.Getenv(name)
	if value == "" {
		return "", clistcal.Errorf(clistcal.EINVALID, "Environment variable %s is required.", name)
	}
	return value, nil
}
