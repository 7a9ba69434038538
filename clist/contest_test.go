package clist

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clistcal"
)

func decodePayload(t *testing.T, raw string) *contestPayload {
	t.Helper()
	var payload contestPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	return &payload
}

func TestParseContest(t *testing.T) {
	t.Run("FullPayload", func(t *testing.T) {
		contest, err := parseContest(decodePayload(t, `{
			"id": 101,
			"event": "  Codeforces Round 930 ",
			"start": "2024-03-01T10:00:00",
			"end": "2024-03-01T12:00:00",
			"href": "https://codeforces.com/contests/1930",
			"resource": {"id": 1, "name": "Codeforces", "host": "codeforces.com"}
		}`))
		require.NoError(t, err)

		assert.Equal(t, 101, contest.ID)
		assert.Equal(t, "Codeforces Round 930", contest.Title)
		assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), contest.Start)
		assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), contest.End)
		assert.Equal(t, "https://codeforces.com/contests/1930", contest.URL)
		assert.Equal(t, 1, contest.ResourceID)
		assert.Equal(t, "Codeforces", contest.Resource)
	})

	t.Run("EndDerivedFromDuration", func(t *testing.T) {
		contest, err := parseContest(decodePayload(t, `{
			"id": 5,
			"event": "Weekly",
			"start": "2024-03-01T10:00:00Z",
			"duration": 5400,
			"resource": {"id": 2, "host": "leetcode.com"}
		}`))
		require.NoError(t, err)
		assert.Equal(t, contest.Start.Add(90*time.Minute), contest.End)
	})

	t.Run("TitleFallbacks", func(t *testing.T) {
		contest, err := parseContest(decodePayload(t, `{
			"id": 7,
			"title": "Named by title",
			"start": "2024-03-01T10:00:00Z",
			"end": "2024-03-01T11:00:00Z"
		}`))
		require.NoError(t, err)
		assert.Equal(t, "Named by title", contest.Title)

		contest, err = parseContest(decodePayload(t, `{
			"id": 7,
			"start": "2024-03-01T10:00:00Z",
			"end": "2024-03-01T11:00:00Z"
		}`))
		require.NoError(t, err)
		assert.Equal(t, "Contest 7", contest.Title)
	})

	t.Run("URLFallbacks", func(t *testing.T) {
		contest, err := parseContest(decodePayload(t, `{
			"id": 8,
			"event": "X",
			"start": "2024-03-01T10:00:00Z",
			"end": "2024-03-01T11:00:00Z",
			"event_url": "https://example.com/a"
		}`))
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/a", contest.URL)
	})

	t.Run("ResourceAsBareString", func(t *testing.T) {
		contest, err := parseContest(decodePayload(t, `{
			"id": 9,
			"event": "X",
			"start": "2024-03-01T10:00:00Z",
			"end": "2024-03-01T11:00:00Z",
			"resource": "atcoder.jp",
			"resource_id": 93
		}`))
		require.NoError(t, err)
		assert.Equal(t, 93, contest.ResourceID)
		assert.Equal(t, "atcoder.jp", contest.Resource)
	})

	t.Run("ResourcePlaceholderName", func(t *testing.T) {
		contest, err := parseContest(decodePayload(t, `{
			"id": 10,
			"event": "X",
			"start": "2024-03-01T10:00:00Z",
			"end": "2024-03-01T11:00:00Z",
			"resource_id": 12
		}`))
		require.NoError(t, err)
		assert.Equal(t, "Resource 12", contest.Resource)
	})

	t.Run("BadTimestamp", func(t *testing.T) {
		_, err := parseContest(decodePayload(t, `{
			"id": 11,
			"event": "X",
			"start": "not a time",
			"end": "2024-03-01T11:00:00Z"
		}`))
		require.Error(t, err)
		assert.Equal(t, clistcal.EINVALID, clistcal.ErrorCode(err))
	})

	t.Run("NoEndAndNoDuration", func(t *testing.T) {
		_, err := parseContest(decodePayload(t, `{
			"id": 12,
			"event": "X",
			"start": "2024-03-01T10:00:00Z"
		}`))
		require.Error(t, err)
		assert.Equal(t, clistcal.EINVALID, clistcal.ErrorCode(err))
	})
}
