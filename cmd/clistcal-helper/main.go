package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"golang.org/x/term"

	"clistcal"
	"clistcal/clist"
	"clistcal/creds"
	"clistcal/ics"
)

// Build version, injected during build.
var (
	version string
	commit  string
)

const (
	DefaultOutput       = "contests.ics"
	DefaultCalendarName = "CLIST Contests"
	DefaultProductID    = "-//CLIST Import//EN"

	PerResourceLimit = 50
)

func main() {
	clistcal.Version = version
	clistcal.Commit = commit

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
	fmt.Println("CLIST contest calendar helper")
	fmt.Println("--------------------------------")
	fmt.Println()

	stdin := bufio.NewReader(os.Stdin)
	store := creds.NewStore("")

	credentials, err := selectCredentials(stdin, store)
	if err != nil {
		return err
	}

	startsAfter, err := promptDateTime(stdin, "Enter start time (ISO, blank for default now): ")
	if err != nil {
		return err
	}
	endsBefore, err := promptDateTime(stdin, "Enter end time (ISO, blank to skip): ")
	if err != nil {
		return err
	}
	includeEnded, err := promptYesNo(stdin, "Include contests that already ended?", false)
	if err != nil {
		return err
	}
	output, err := promptLine(stdin, "Output .ics path ["+DefaultOutput+"]: ")
	if err != nil {
		return err
	}
	if output == "" {
		output = DefaultOutput
	}
	fmt.Println()

	resources, err := clist.ResolveResources(nil)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if startsAfter == nil && !includeEnded {
		startsAfter = &now
	}

	client := clist.NewClient(credentials.Username, credentials.APIKey)
	contests, err := client.FindContests(ctx, clist.ContestFilter{
		Resources:        resources,
		StartsAfter:      startsAfter,
		EndsBefore:       endsBefore,
		IncludeEnded:     includeEnded,
		PerResourceLimit: PerResourceLimit,
		Now:              now,
	})
	if err != nil {
		return err
	}

	contests = clistcal.Deduplicate(contests)
	if !includeEnded {
		contests = clistcal.FilterEnded(contests, now)
	}
	contests = clistcal.FilterWindow(contests, clistcal.Window{StartsAfter: startsAfter, EndsBefore: endsBefore})
	clistcal.SortByStart(contests)

	if len(contests) == 0 {
		return clistcal.Errorf(clistcal.ENOTFOUND, "No contests retrieved. Adjust filters or timeframe.")
	}

	cal := ics.Calendar{Name: DefaultCalendarName, ProdID: DefaultProductID}
	var buf bytes.Buffer
	if err := cal.Encode(&buf, contests, now); err != nil {
		return err
	}
	if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
		return clistcal.Errorf(clistcal.EINTERNAL, "Cannot write %s: %v.", output, err)
	}

	fmt.Printf("Wrote %d contest(s) to %s\n", len(contests), output)

	return nil
}

// selectCredentials offers saved credentials for reuse or replacement,
// prompting for a fresh pair when there are none.
func selectCredentials(stdin *bufio.Reader, store *creds.Store) (*creds.Credentials, error) {
	saved, err := store.Load()
	if err != nil {
		return nil, err
	}

	if saved != nil {
		fmt.Println("Saved credentials detected:")
		fmt.Printf("  Username: %s\n", saved.Username)
		fmt.Println("Select an option:")
		fmt.Println("  1) Use the saved credentials")
		fmt.Println("  2) Enter new credentials and delete saved data")

		choice, err := promptMenuChoice(stdin, "1", []string{"1", "2"})
		if err != nil {
			return nil, err
		}
		if choice == "1" {
			return saved, nil
		}

		if err := store.Delete(); err != nil {
			return nil, err
		}
		fmt.Println("Saved credential file deleted.")
		fmt.Println()
	} else {
		fmt.Println("No saved credentials found. Please enter them now.")
		fmt.Println()
	}

	credentials, err := promptNewCredentials(stdin)
	if err != nil {
		return nil, err
	}
	if err := store.Save(credentials); err != nil {
		return nil, err
	}
	fmt.Println("Credentials saved.")
	fmt.Println()

	return credentials, nil
}

func promptNewCredentials(stdin *bufio.Reader) (*creds.Credentials, error) {
	username, err := promptNonEmpty(stdin, "CLIST username: ")
	if err != nil {
		return nil, err
	}

	fmt.Println("(API key input is hidden; paste and press Enter.)")
	apiKey, err := promptSecret(stdin, "CLIST API key: ")
	if err != nil {
		return nil, err
	}
	fmt.Println()

	return &creds.Credentials{Username: username, APIKey: apiKey}, nil
}

func promptLine(stdin *bufio.Reader, message string) (string, error) {
	fmt.Print(message)
	line, err := stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", errors.New("input closed")
	}
	return strings.TrimSpace(line), nil
}

func promptNonEmpty(stdin *bufio.Reader, message string) (string, error) {
	for {
		value, err := promptLine(stdin, message)
		if err != nil {
			return "", err
		}
		if value != "" {
			return value, nil
		}
		fmt.Println("Value cannot be empty. Please try again.")
	}
}

// promptSecret reads a value with terminal echo disabled. When stdin is not
// a terminal it degrades to a plain line read.
func promptSecret(stdin *bufio.Reader, message string) (string, error) {
	fd := int(os.Stdin.Fd())

	for {
		var value string
		if term.IsTerminal(fd) {
			fmt.Print(message)
			buf, err := term.ReadPassword(fd)
			fmt.Println()
			if err != nil {
				return "", err
			}
			value = strings.TrimSpace(string(buf))
		} else {
			var err error
			if value, err = promptLine(stdin, message); err != nil {
				return "", err
			}
		}

		if value != "" {
			return value, nil
		}
		fmt.Println("Value cannot be empty. Please try again.")
	}
}

func promptMenuChoice(stdin *bufio.Reader, def string, options []string) (string, error) {
	for {
		answer, err := promptLine(stdin, fmt.Sprintf("Enter choice [%s]: ", def))
		if err != nil {
			return "", err
		}
		if answer == "" {
			return def, nil
		}
		for _, option := range options {
			if answer == option {
				return answer, nil
			}
		}
		fmt.Println("Invalid choice, please try again.")
	}
}

func promptYesNo(stdin *bufio.Reader, message string, def bool) (bool, error) {
	suffix := " [y/N]"
	if def {
		suffix = " [Y/n]"
	}

	for {
		answer, err := promptLine(stdin, message+suffix+": ")
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Println("Please answer yes or no.")
	}
}

// promptDateTime reads an optional ISO timestamp, re-prompting until the
// input parses. Blank input means no bound.
func promptDateTime(stdin *bufio.Reader, message string) (*time.Time, error) {
	for {
		value, err := promptLine(stdin, message)
		if err != nil {
			return nil, err
		}
		if value == "" {
			return nil, nil
		}
		if t, err := clistcal.ParseTime(value); err == nil {
			return &t, nil
		}
		fmt.Println("Invalid datetime. Use ISO format like 2025-01-01T00:00:00+00:00 or append 'Z'.")
	}
}
