package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/weightstats/internal/weightstats"
)

func (s *IntegrationTestSuite) deleteAllWeightEntries(ctx context.Context) {
	_, err := s.dbPool.Exec(ctx, "DELETE FROM weight_entry")
	require.NoError(s.T(), err)
}

func (s *IntegrationTestSuite) doRequest(
	ctx context.Context,
	token, method, path string,
	body []byte,
) *http.Response {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, serverEndpoint+path, bodyReader)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("X-WEIGHTSTATS-TOKEN", token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	return resp
}

func decodeResponse[T any](s *IntegrationTestSuite, resp *http.Response) T {
	defer resp.Body.Close()
	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)

	var decoded T
	require.NoError(s.T(), json.Unmarshal(respBytes, &decoded), "body: %s", respBytes)
	return decoded
}

func (s *IntegrationTestSuite) TestWeights_CRUD() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.deleteAllWeightEntries(ctx)
	token := doLogin(ctx, t)

	// unauthenticated requests bounce off
	resp := s.doRequest(ctx, "", "GET", "/weights", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// add two entries, one with a day-first date and a bare time of day
	addReqJson, err := json.Marshal(weightstats.AddEntryRequest{
		Date:       "05.03.2024",
		Weight:     88.5,
		RecordedAt: "08:30",
	})
	require.NoError(t, err)

	resp = s.doRequest(ctx, token, "POST", "/weights", addReqJson)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	added := decodeResponse[weightstats.WeightEntry](s, resp)
	assert.Equal(t, "2024-03-05", added.Date)
	assert.Equal(t, "2024-03-05T08:30:00", added.RecordedAt)

	addReqJson, err = json.Marshal(weightstats.AddEntryRequest{
		Date:   "2024-03-06",
		Weight: 88.1,
	})
	require.NoError(t, err)
	resp = s.doRequest(ctx, token, "POST", "/weights", addReqJson)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// get one day
	resp = s.doRequest(ctx, token, "GET", "/weights/2024-03-05", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entry := decodeResponse[weightstats.WeightEntry](s, resp)
	assert.InDelta(t, 88.5, entry.Weight, 0.0001)

	// re-adding the same day overwrites, it never duplicates
	addReqJson, err = json.Marshal(weightstats.AddEntryRequest{
		Date:   "2024-03-05",
		Weight: 88.7,
	})
	require.NoError(t, err)
	resp = s.doRequest(ctx, token, "POST", "/weights", addReqJson)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = s.doRequest(ctx, token, "GET", "/weights", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decodeResponse[weightstats.ListEntriesResponse](s, resp)
	require.Equal(t, 2, list.Total)
	assert.Equal(t, "2024-03-05", list.Entries[0].Date)
	assert.InDelta(t, 88.7, list.Entries[0].Weight, 0.0001)
	assert.InDelta(t, -0.6, list.Entries[1].ChangeKg, 0.0001)

	// delete
	resp = s.doRequest(ctx, token, "DELETE", "/weights/2024-03-06", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	deleted := decodeResponse[weightstats.DeleteEntryResponse](s, resp)
	assert.Equal(t, "2024-03-06", deleted.DeletedDay)

	resp = s.doRequest(ctx, token, "GET", "/weights/2024-03-06", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func (s *IntegrationTestSuite) TestWeights_GoalAndStats() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.deleteAllWeightEntries(ctx)
	token := doLogin(ctx, t)

	goalJson, err := json.Marshal(weightstats.Goal{
		StartDate:   "2024-01-01",
		StartWeight: 90,
		EndDate:     "2024-06-01",
		EndWeight:   70,
		Height:      180,
	})
	require.NoError(t, err)

	resp := s.doRequest(ctx, token, "POST", "/weights/goal", goalJson)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	storedGoal := decodeResponse[weightstats.Goal](s, resp)
	assert.Equal(t, 152, storedGoal.TotalDuration)
	assert.InDelta(t, 20, storedGoal.TotalKg, 0.0001)

	resp = s.doRequest(ctx, token, "GET", "/weights/goal", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fetchedGoal := decodeResponse[weightstats.Goal](s, resp)
	assert.Equal(t, storedGoal, fetchedGoal)

	// stats without entries is a client error
	resp = s.doRequest(ctx, token, "GET", "/weights/stats", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	for _, add := range []weightstats.AddEntryRequest{
		{Date: "2024-01-01", Weight: 90},
		{Date: "2024-01-17", Weight: 88},
	} {
		addReqJson, err := json.Marshal(add)
		require.NoError(t, err)
		resp = s.doRequest(ctx, token, "POST", "/weights", addReqJson)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	resp = s.doRequest(ctx, token, "GET", "/weights/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decodeResponse[weightstats.Statistics](s, resp)
	assert.Equal(t, "2024-01-17", stats.Current.Date)
	assert.InDelta(t, 2, stats.Progress.TotalLost, 0.0001)
	assert.InDelta(t, 10, stats.Progress.PercentageComplete, 0.0001)

	resp = s.doRequest(ctx, token, "GET", "/weights/stats/trend", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	trend := decodeResponse[weightstats.TrendAnalysis](s, resp)
	assert.Equal(t, weightstats.TrendSteady, trend.Trend)

	resp = s.doRequest(ctx, token, "GET", "/weights/stats/movingavg", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	points := decodeResponse[[]weightstats.MovingAveragePoint](s, resp)
	require.Len(t, points, 2)
}

func (s *IntegrationTestSuite) TestWeights_Import() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.deleteAllWeightEntries(ctx)
	token := doLogin(ctx, t)

	sheet := fmt.Sprintf("%s\n%s\n%s\n%s\n",
		"Day,KG,Time",
		"2024-03-05,88.5,08:30",
		"someday,88.2,",
		"06.03.2024,88.1,",
	)

	resp := s.doRequest(ctx, token, "POST", "/weights/import", []byte(sheet))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status := decodeResponse[map[string]any](s, resp)
	assert.Equal(t, "done", status["state"])
	assert.InDelta(t, 3, status["rowsTotal"], 0.0001)
	assert.InDelta(t, 2, status["rowsImported"], 0.0001)
	assert.InDelta(t, 1, status["rowsDropped"], 0.0001)

	resp = s.doRequest(ctx, token, "GET", "/weights/import/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	lastStatus := decodeResponse[map[string]any](s, resp)
	assert.Equal(t, "done", lastStatus["state"])

	resp = s.doRequest(ctx, token, "GET", "/weights", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decodeResponse[weightstats.ListEntriesResponse](s, resp)
	require.Equal(t, 2, list.Total)
	assert.Equal(t, "2024-03-05", list.Entries[0].Date)
	assert.Equal(t, "2024-03-06", list.Entries[1].Date)
}
