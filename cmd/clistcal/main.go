package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

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

// Environment variables consulted when credential flags are absent.
const (
	EnvUsername = "CLIST_API_USERNAME"
	EnvAPIKey   = "CLIST_API_KEY"
)

const (
	DefaultConfigPath       = "~/.clistcal.toml"
	DefaultPerResourceLimit = 50
	DefaultCalendarName     = "CLIST Contests"
	DefaultProductID        = "-//CLIST Import//EN"
	DefaultOutput           = "contests.ics"
)

// Config holds optional defaults read from the TOML config file. Flags and
// environment variables take precedence over everything in here.
type Config struct {
	Username        string   `toml:"username"`
	APIKey          string   `toml:"api_key"`
	Resources       []string `toml:"resources"`
	CalendarName    string   `toml:"calendar_name"`
	ProductID       string   `toml:"product_id"`
	Output          string   `toml:"output"`
	CredentialsPath string   `toml:"credentials_path"`
}

// DefaultConfig returns a new instance of Config with defaults set.
func DefaultConfig() Config {
	var config Config
	return config
}

func main() {
	// Propagate build information to root package to share globally.
	clistcal.Version = version
	clistcal.Commit = commit

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	m := NewMain()

	// Parse command line flags & load configuration.
	if err := m.ParseFlagAndConfig(ctx, os.Args[1:]); errors.Is(err, flag.ErrHelp) {
		os.Exit(1)
	} else if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := m.Run(ctx); err != nil {
		var appErr *clistcal.Error
		if errors.As(err, &appErr) {
			_, _ = fmt.Fprintln(os.Stderr, appErr.Message)
		} else {
			_, _ = fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

type Main struct {
	Config     Config
	ConfigPath string

	Username         string
	APIKey           string
	Resources        string
	StartsAfter      string
	EndsBefore       string
	IncludeEnded     bool
	PerResourceLimit int
	MaxContests      int
	CalendarName     string
	ProductID        string
	Output           string

	// Flags explicitly named on the command line, by flag name.
	flagSet map[string]bool
}

func NewMain() *Main {
	return &Main{
		Config:     DefaultConfig(),
		ConfigPath: DefaultConfigPath,
		flagSet:    map[string]bool{},
	}
}

func (m *Main) ParseFlagAndConfig(ctx context.Context, args []string) error {
	f := flag.NewFlagSet("clistcal", flag.ContinueOnError)
	f.StringVar(&m.ConfigPath, "config-path", DefaultConfigPath, "config file path, skipped when absent")
	f.StringVar(&m.Username, "username", "", "CLIST API username, defaults to "+EnvUsername)
	f.StringVar(&m.APIKey, "api-key", "", "CLIST API key, defaults to "+EnvAPIKey)
	f.StringVar(&m.Resources, "resources", "", "space-separated resource filters (alias, host, or numeric ID)")
	f.StringVar(&m.StartsAfter, "starts-after", "", "ISO timestamp, keep contests starting on or after this moment")
	f.StringVar(&m.EndsBefore, "ends-before", "", "ISO timestamp, keep contests starting before this moment")
	f.BoolVar(&m.IncludeEnded, "include-ended", false, "include contests that already ended")
	f.IntVar(&m.PerResourceLimit, "per-resource-limit", DefaultPerResourceLimit, "max contests fetched per resource, 0 means unlimited")
	f.IntVar(&m.MaxContests, "max-contests", 0, "max contests kept after merging all resources, 0 means unlimited")
	f.StringVar(&m.CalendarName, "calendar-name", DefaultCalendarName, "calendar name stored in the ICS (X-WR-CALNAME)")
	f.StringVar(&m.ProductID, "product-id", DefaultProductID, "product identifier stored in the ICS PRODID field")
	f.StringVar(&m.Output, "output", DefaultOutput, "output .ics file path")
	if err := f.Parse(args); err != nil {
		return err
	}

	f.Visit(func(fl *flag.Flag) { m.flagSet[fl.Name] = true })

	// The expand() function is here to automatically expand "~" to the user's
	// home directory. This is a common task as configuration files are typing
	// under the home directory during local development.
	configPath, err := expand(m.ConfigPath)
	if err != nil {
		return err
	}

	// Read our TOML formatted configuration file. Unlike a daemon this tool
	// must run config-free, so a missing file is only an error when the user
	// pointed at one explicitly.
	config, err := ReadConfigFile(configPath)
	if os.IsNotExist(err) {
		if m.flagSet["config-path"] {
			return fmt.Errorf("config file not found: %s", m.ConfigPath)
		}
		return nil
	} else if err != nil {
		return err
	}

	m.Config = config

	return nil
}

func (m *Main) Run(ctx context.Context) error {
	username, apiKey, err := m.credentials()
	if err != nil {
		return err
	}

	resources, err := clist.ResolveResources(m.resourceTokens())
	if err != nil {
		return err
	}

	var startsAfter, endsBefore *time.Time
	if m.StartsAfter != "" {
		t, err := clistcal.ParseTime(m.StartsAfter)
		if err != nil {
			return err
		}
		startsAfter = &t
	}
	if m.EndsBefore != "" {
		t, err := clistcal.ParseTime(m.EndsBefore)
		if err != nil {
			return err
		}
		endsBefore = &t
	}

	now := time.Now().UTC()
	if startsAfter == nil && !m.IncludeEnded {
		startsAfter = &now
	}

	client := clist.NewClient(username, apiKey)
	contests, err := client.FindContests(ctx, clist.ContestFilter{
		Resources:        resources,
		StartsAfter:      startsAfter,
		EndsBefore:       endsBefore,
		IncludeEnded:     m.IncludeEnded,
		PerResourceLimit: m.PerResourceLimit,
		Now:              now,
	})
	if err != nil {
		return err
	}

	contests = clistcal.Deduplicate(contests)
	if !m.IncludeEnded {
		contests = clistcal.FilterEnded(contests, now)
	}
	contests = clistcal.FilterWindow(contests, clistcal.Window{StartsAfter: startsAfter, EndsBefore: endsBefore})
	clistcal.SortByStart(contests)
	contests = clistcal.Trim(contests, m.MaxContests)

	if len(contests) == 0 {
		return clistcal.Errorf(clistcal.ENOTFOUND, "No contests retrieved. Adjust filters or timeframe.")
	}

	cal := ics.Calendar{Name: m.calendarName(), ProdID: m.productID()}
	var buf bytes.Buffer
	if err := cal.Encode(&buf, contests, now); err != nil {
		return err
	}

	output := m.output()
	if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
		return clistcal.Errorf(clistcal.EINTERNAL, "Cannot write %s: %v.", output, err)
	}

	fmt.Printf("Wrote %d contest(s) to %s\n", len(contests), output)

	return nil
}

// credentials resolves the login pair: flag beats environment beats config
// file beats saved credential file.
func (m *Main) credentials() (username, apiKey string, err error) {
	username = m.Username
	if username == "" {
		username = os.Getenv(EnvUsername)
	}
	if username == "" {
		username = m.Config.Username
	}

	apiKey = m.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(EnvAPIKey)
	}
	if apiKey == "" {
		apiKey = m.Config.APIKey
	}

	if username == "" || apiKey == "" {
		path := m.Config.CredentialsPath
		if path != "" {
			if expanded, err := expand(path); err == nil {
				path = expanded
			}
		}

		store := creds.NewStore(path)
		saved, err := store.Load()
		if err != nil {
			return "", "", err
		}
		if saved != nil {
			if username == "" {
				username = saved.Username
			}
			if apiKey == "" {
				apiKey = saved.APIKey
			}
		}
	}

	if username == "" || apiKey == "" {
		return "", "", clistcal.Errorf(clistcal.EUNAUTHORIZED,
			"CLIST credentials are required. Provide -username/-api-key or set %s/%s.", EnvUsername, EnvAPIKey)
	}

	return username, apiKey, nil
}

func (m *Main) resourceTokens() []string {
	if m.Resources != "" {
		return strings.Fields(m.Resources)
	}
	return m.Config.Resources
}

func (m *Main) calendarName() string {
	if !m.flagSet["calendar-name"] && m.Config.CalendarName != "" {
		return m.Config.CalendarName
	}
	return m.CalendarName
}

func (m *Main) productID() string {
	if !m.flagSet["product-id"] && m.Config.ProductID != "" {
		return m.Config.ProductID
	}
	return m.ProductID
}

func (m *Main) output() string {
	if !m.flagSet["output"] && m.Config.Output != "" {
		return m.Config.Output
	}
	return m.Output
}

// expand returns path using tilde expansion. This means that a file path that
// begins with the "~" will be expanded to prefix the user's home directory.
func expand(path string) (string, error) {
	// Ignore path if it hasn't a leading tilde.
	if path != "~" && !strings.HasPrefix(path, "~"+string(os.PathSeparator)) {
		return filepath.Clean(path), nil
	}

	// Fetch the current user to determine the home path.
	u, err := user.Current()
	if err != nil {
		return filepath.Clean(path), err
	} else if u.HomeDir == "" {
		return filepath.Clean(path), errors.New("home directory unset")
	}

	// If the path is composed only by the tilde return the home directory.
	if path == "~" {
		return u.HomeDir, nil
	}

	return filepath.Join(u.HomeDir, strings.TrimPrefix(path, "~"+string(os.PathSeparator))), nil
}

// ReadConfigFile unmarshals config from filename.
func ReadConfigFile(filename string) (Config, error) {
	config := DefaultConfig()
	if buf, err := os.ReadFile(filename); err != nil {
		return config, err
	} else if err := toml.Unmarshal(buf, &config); err != nil {
		return config, err
	}
	return config, nil
}
