package clist

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"clistcal"
)

// DefaultBaseURL is the CLIST API v2 endpoint.
const DefaultBaseURL = "https://clist.by/api/v2"

// pageSize is the maximum contests requested per API call.
const pageSize = 100

// Client is a CLIST API client. BaseURL and the underlying http.Client can
// be overridden before use, which tests rely on.
type Client struct {
	BaseURL  string
	Username string
	APIKey   string

	c *http.Client
}

func NewClient(username, apiKey string) *Client {
	return &Client{
		BaseURL:  DefaultBaseURL,
		Username: username,
		APIKey:   apiKey,
		c:        http.DefaultClient,
	}
}

// ContestFilter represents a filter passed to FindContests.
type ContestFilter struct {
	Resources []ResourceFilter

	// Bounds on contest start time, both inclusive.
	StartsAfter *time.Time
	EndsBefore  *time.Time

	// Keep contests that already ended.
	IncludeEnded bool

	// Max contests fetched per resource. Zero means unlimited.
	PerResourceLimit int

	// Reference instant for the ended cutoff. Zero means the wall clock.
	Now time.Time
}

// contestPage is one page of the API contest listing.
type contestPage struct {
	Meta struct {
		Next *string `json:"next"`
	} `json:"meta"`
	Objects []contestPayload `json:"objects"`
}

// FindContests fetches contests for every resource filter in turn and
// returns the concatenated normalized records. A single attempt is made per
// call, errors surface directly.
func (c *Client) FindContests(ctx context.Context, filter ContestFilter) ([]*clistcal.Contest, error) {
	now := filter.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	contests := make([]*clistcal.Contest, 0)
	for _, resource := range filter.Resources {
		fetched, err := c.findResourceContests(ctx, resource, filter, now)
		if err != nil {
			return nil, err
		}
		contests = append(contests, fetched...)
	}
	return contests, nil
}

// findResourceContests pages through the contest listing of one resource
// until the listing or the per-resource allowance runs out.
func (c *Client) findResourceContests(ctx context.Context, resource ResourceFilter, filter ContestFilter, now time.Time) ([]*clistcal.Contest, error) {
	fetched := make([]*clistcal.Contest, 0)
	offset := 0

	for {
		limit := pageSize
		if filter.PerResourceLimit > 0 {
			remaining := filter.PerResourceLimit - len(fetched)
			if remaining <= 0 {
				return fetched, nil
			}
			if remaining < limit {
				limit = remaining
			}
		}

		q := url.Values{}
		q.Set(resource.Field, resource.Value)
		q.Set("order_by", "start")
		q.Set("offset", strconv.Itoa(offset))
		q.Set("limit", strconv.Itoa(limit))

		if filter.StartsAfter != nil {
			q.Set("start__gte", apiTime(*filter.StartsAfter))
		}
		if filter.EndsBefore != nil {
			q.Set("start__lte", apiTime(*filter.EndsBefore))
		}
		if !filter.IncludeEnded {
			q.Set("end__gte", apiTime(now))
		}

		page, err := c.getContests(ctx, q)
		if err != nil {
			return nil, err
		}

		if len(page.Objects) == 0 {
			return fetched, nil
		}

		for i := range page.Objects {
			contest, err := parseContest(&page.Objects[i])
			if err != nil {
				slog.Warn("skipping contest due to parse error", "err", err)
				continue
			}
			fetched = append(fetched, contest)
			if filter.PerResourceLimit > 0 && len(fetched) >= filter.PerResourceLimit {
				return fetched, nil
			}
		}

		offset += len(page.Objects)

		if page.Meta.Next == nil {
			return fetched, nil
		}
	}
}

func (c *Client) getContests(ctx context.Context, query url.Values) (*contestPage, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, err
	}
	u = u.JoinPath("contest", "/")
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	req.Header.Add("Authorization", "ApiKey "+c.Username+":"+c.APIKey)
	req.Header.Add("Accept", "application/json")

	resp, err := c.c.Do(req)
	if err != nil {
		return nil, clistcal.Errorf(clistcal.EUNAVAILABLE, "Failed to reach CLIST API: %v.", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, clistcal.Errorf(clistcal.EUNAUTHORIZED, "CLIST API rejected credentials (%d): %s.", resp.StatusCode, readDetail(resp.Body))
	} else if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, clistcal.Errorf(clistcal.EINTERNAL, "CLIST API error (%d): %s.", resp.StatusCode, readDetail(resp.Body))
	}

	page := &contestPage{}
	if err := json.NewDecoder(resp.Body).Decode(page); err != nil {
		return nil, clistcal.Errorf(clistcal.EINTERNAL, "CLIST API response was not valid JSON.")
	}

	return page, nil
}

// apiTime formats an instant the way the API query parameters expect.
func apiTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// readDetail drains a capped amount of an error response body for messages.
func readDetail(r io.Reader) string {
	detail, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil {
		return ""
	}
	return string(detail)
}
