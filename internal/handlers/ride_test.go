package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/velotracker/apiserver/types"
)

func TestRideRoutes_RequireAuth(t *testing.T) {
	env := newTestEnv(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/rides"},
		{http.MethodGet, "/api/rides"},
		{http.MethodGet, "/api/rides/1"},
		{http.MethodPut, "/api/rides/1"},
		{http.MethodDelete, "/api/rides/1"},
	} {
		rec := env.do(t, tc.method, tc.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestCreateRide_AppliesDefaults(t *testing.T) {
	env := newTestEnv(t)
	user := seedUser(t, env, "Alice", "alice@example.com", "secret99")
	bearer, err := env.tokens.Issue(user)
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost, "/api/rides", bearer, []byte(`{}`))

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp RideResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "New Ride", resp.Ride.Title)
	assert.Equal(t, "00:00:00", resp.Ride.Duration)
	assert.Zero(t, resp.Ride.Distance)
	assert.Empty(t, resp.Ride.Notes)
	assert.Equal(t, user.ID, resp.Ride.UserID)
	assert.WithinDuration(t, time.Now(), resp.Ride.StartTime, time.Minute)
}

func TestRide_CreateThenGetRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	user := seedUser(t, env, "Alice", "alice@example.com", "secret99")
	bearer, err := env.tokens.Issue(user)
	require.NoError(t, err)

	body := []byte(`{
		"title": "Morning Loop",
		"distance": 21.3,
		"duration": "01:10:00",
		"avg_speed": 18.2,
		"max_speed": 39.5,
		"start_time": "2026-08-30T07:00:00Z",
		"notes": "windy",
		"route_data": {"points": [[50.45, 30.52], [50.46, 30.53]]}
	}`)
	rec := env.do(t, http.MethodPost, "/api/rides", bearer, body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created RideResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/rides/%d", created.Ride.ID), bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got types.Ride
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Morning Loop", got.Title)
	assert.Equal(t, 21.3, got.Distance)
	assert.Equal(t, "01:10:00", got.Duration)
	assert.Equal(t, 18.2, got.AvgSpeed)
	assert.Equal(t, 39.5, got.MaxSpeed)
	assert.Equal(t, "windy", got.Notes)
	assert.JSONEq(t, `{"points": [[50.45, 30.52], [50.46, 30.53]]}`, string(got.RouteData))
}

func TestUpdateRide_OnlyTitleAndNotesChange(t *testing.T) {
	env := newTestEnv(t)
	user := seedUser(t, env, "Alice", "alice@example.com", "secret99")
	bearer, err := env.tokens.Issue(user)
	require.NoError(t, err)

	ride, err := env.rideRepo.Create(context.Background(), types.Ride{
		UserID:    user.ID,
		Title:     "Original",
		Distance:  12.5,
		Duration:  "00:45:00",
		StartTime: time.Now(),
		Notes:     "old notes",
	})
	require.NoError(t, err)

	body := []byte(`{"title":"Renamed","notes":"new notes"}`)
	rec := env.do(t, http.MethodPut, fmt.Sprintf("/api/rides/%d", ride.ID), bearer, body)

	require.Equal(t, http.StatusOK, rec.Code)
	var got types.Ride
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, "new notes", got.Notes)
	assert.Equal(t, 12.5, got.Distance)
	assert.Equal(t, "00:45:00", got.Duration)
}

func TestRide_CrossUserAccessLooksMissing(t *testing.T) {
	env := newTestEnv(t)
	owner := seedUser(t, env, "Owner", "owner@example.com", "secret99")
	other := seedUser(t, env, "Other", "other@example.com", "secret99")

	ride, err := env.rideRepo.Create(context.Background(), types.Ride{UserID: owner.ID, Title: "Private", StartTime: time.Now()})
	require.NoError(t, err)

	bearer, err := env.tokens.Issue(other)
	require.NoError(t, err)

	path := fmt.Sprintf("/api/rides/%d", ride.ID)
	rec := env.do(t, http.MethodGet, path, bearer, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPut, path, bearer, []byte(`{"title":"stolen","notes":""}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodDelete, path, bearer, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// The ride is untouched for its owner.
	got, err := env.rideRepo.GetByID(context.Background(), owner.ID, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, "Private", got.Title)
}

func TestListRides_MostRecentFirstAndScopedToCaller(t *testing.T) {
	env := newTestEnv(t)
	user := seedUser(t, env, "Alice", "alice@example.com", "secret99")
	other := seedUser(t, env, "Other", "other@example.com", "secret99")
	bearer, err := env.tokens.Issue(user)
	require.NoError(t, err)

	now := time.Now()
	_, err = env.rideRepo.Create(context.Background(), types.Ride{UserID: user.ID, Title: "Old", StartTime: now.Add(-2 * time.Hour)})
	require.NoError(t, err)
	_, err = env.rideRepo.Create(context.Background(), types.Ride{UserID: user.ID, Title: "Recent", StartTime: now})
	require.NoError(t, err)
	_, err = env.rideRepo.Create(context.Background(), types.Ride{UserID: other.ID, Title: "Not mine", StartTime: now})
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/api/rides", bearer, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var rides []types.Ride
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rides))
	require.Len(t, rides, 2)
	assert.Equal(t, "Recent", rides[0].Title)
	assert.Equal(t, "Old", rides[1].Title)
}

func TestDeleteRide_RemovesRow(t *testing.T) {
	env := newTestEnv(t)
	user := seedUser(t, env, "Alice", "alice@example.com", "secret99")
	bearer, err := env.tokens.Issue(user)
	require.NoError(t, err)

	ride, err := env.rideRepo.Create(context.Background(), types.Ride{UserID: user.ID, Title: "Doomed", StartTime: time.Now()})
	require.NoError(t, err)

	path := fmt.Sprintf("/api/rides/%d", ride.ID)
	rec := env.do(t, http.MethodDelete, path, bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "deleted")

	rec = env.do(t, http.MethodGet, path, bearer, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRide_InvalidID(t *testing.T) {
	env := newTestEnv(t)
	user := seedUser(t, env, "Alice", "alice@example.com", "secret99")
	bearer, err := env.tokens.Issue(user)
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/api/rides/abc", bearer, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
