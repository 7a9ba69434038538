package clist

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"clistcal"
)

// contestPayload is a raw contest object as returned by the CLIST API.
// Field names vary across resources, hence the fallback chains in
// parseContest.
type contestPayload struct {
	ID         int             `json:"id"`
	Event      string          `json:"event"`
	Title      string          `json:"title"`
	Start      string          `json:"start"`
	End        string          `json:"end"`
	Duration   int64           `json:"duration"`
	Href       string          `json:"href"`
	EventURL   string          `json:"event_url"`
	URL        string          `json:"url"`
	ResourceID int             `json:"resource_id"`
	Resource   json.RawMessage `json:"resource"`
}

// resourceInfo is the expanded form of the payload "resource" field. Some
// responses carry a bare hostname string instead.
type resourceInfo struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
	Host      string `json:"host"`
}

// parseContest normalizes a raw payload into a Contest with UTC timestamps.
func parseContest(payload *contestPayload) (*clistcal.Contest, error) {
	title := payload.Event
	if title == "" {
		title = payload.Title
	}
	if title == "" {
		title = fmt.Sprintf("Contest %d", payload.ID)
	}

	start, err := clistcal.ParseTime(payload.Start)
	if err != nil {
		return nil, err
	}

	var end time.Time
	switch {
	case payload.End != "":
		if end, err = clistcal.ParseTime(payload.End); err != nil {
			return nil, err
		}
	case payload.Duration > 0:
		end = start.Add(time.Duration(payload.Duration) * time.Second)
	default:
		return nil, clistcal.Errorf(clistcal.EINVALID, "Contest %d has neither end time nor duration.", payload.ID)
	}

	href := payload.Href
	if href == "" {
		href = payload.EventURL
	}
	if href == "" {
		href = payload.URL
	}

	resourceID, resourceName := parseResource(payload)

	contest := &clistcal.Contest{
		ID:         payload.ID,
		Title:      strings.TrimSpace(title),
		Start:      start,
		End:        end,
		URL:        strings.TrimSpace(href),
		ResourceID: resourceID,
		Resource:   strings.TrimSpace(resourceName),
	}

	if err := contest.Validate(); err != nil {
		return nil, err
	}

	return contest, nil
}

// parseResource pulls the platform ID and display name out of the payload,
// coping with both the expanded object and the bare string form.
func parseResource(payload *contestPayload) (int, string) {
	id := payload.ResourceID
	name := ""

	if len(payload.Resource) > 0 {
		var info resourceInfo
		if err := json.Unmarshal(payload.Resource, &info); err == nil {
			if id == 0 {
				id = info.ID
			}
			switch {
			case info.Name != "":
				name = info.Name
			case info.ShortName != "":
				name = info.ShortName
			case info.Host != "":
				name = info.Host
			}
		} else {
			var host string
			if err := json.Unmarshal(payload.Resource, &host); err == nil {
				name = host
			}
		}
	}

	if name == "" {
		name = fmt.Sprintf("Resource %d", id)
	}

	return id, name
}
