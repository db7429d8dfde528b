package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/welltrack/welltrack-api/internal/handlers/testutil"
)

type hydrationPayload struct {
	ID     string  `json:"id"`
	UserID string  `json:"user_id"`
	Liters float64 `json:"water_intake_liters"`
}

type sleepPayload struct {
	ID      string  `json:"id"`
	Hours   float64 `json:"hours"`
	Quality string  `json:"quality"`
}

type moodPayload struct {
	ID    string `json:"id"`
	Mood  string `json:"mood"`
	Notes string `json:"notes"`
}

type stepsPayload struct {
	ID           string `json:"id"`
	Steps        int    `json:"steps"`
	ActivityType string `json:"activity_type"`
}

func TestWellnessHandler_HydrationCRUD(t *testing.T) {
	env := testutil.NewEnv(t)
	userID, email := env.CreateVerifiedUser(strongPassword)
	token := env.Login(email, strongPassword).AccessToken

	w := env.Request(http.MethodPost, "/api/hydration", map[string]any{"water_intake_liters": 0.5}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created hydrationPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &created)
	require.NotEmpty(t, created.ID)
	require.Equal(t, userID, created.UserID)
	require.InDelta(t, 0.5, created.Liters, 0.0001)

	w = env.Request(http.MethodPut, "/api/hydration/"+created.ID, map[string]any{"water_intake_liters": 1.25}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodGet, "/api/hydration/"+created.ID, nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var fetched hydrationPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &fetched)
	require.InDelta(t, 1.25, fetched.Liters, 0.0001)

	w = env.Request(http.MethodGet, "/api/hydration", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var list []hydrationPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &list)
	require.Len(t, list, 1)

	w = env.Request(http.MethodDelete, "/api/hydration/"+created.ID, nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.Request(http.MethodDelete, "/api/hydration/"+created.ID, nil, token)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestWellnessHandler_HydrationValidation(t *testing.T) {
	env := testutil.NewEnv(t)
	_, email := env.CreateVerifiedUser(strongPassword)
	token := env.Login(email, strongPassword).AccessToken

	w := env.Request(http.MethodPost, "/api/hydration", map[string]any{"water_intake_liters": 25}, token)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, testutil.DecodeResponse(t, w).Error.Message, "water intake liters must be at most 10")
}

func TestWellnessHandler_EntriesAreScopedToOwner(t *testing.T) {
	env := testutil.NewEnv(t)
	_, ownerEmail := env.CreateVerifiedUser(strongPassword)
	_, otherEmail := env.CreateVerifiedUser(strongPassword)
	owner := env.Login(ownerEmail, strongPassword).AccessToken
	other := env.Login(otherEmail, strongPassword).AccessToken

	w := env.Request(http.MethodPost, "/api/steps", map[string]any{"steps": 4200}, owner)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created stepsPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &created)
	require.Equal(t, "Walking", created.ActivityType)

	w = env.Request(http.MethodGet, "/api/steps/"+created.ID, nil, other)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = env.Request(http.MethodDelete, "/api/steps/"+created.ID, nil, other)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = env.Request(http.MethodGet, "/api/steps", nil, other)
	require.Equal(t, http.StatusOK, w.Code)
	var list []stepsPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &list)
	require.Empty(t, list)

	w = env.Request(http.MethodPut, "/api/steps/"+created.ID, map[string]any{"steps": 5000, "activity_type": "Running"}, owner)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated stepsPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &updated)
	require.Equal(t, 5000, updated.Steps)
	require.Equal(t, "Running", updated.ActivityType)
}

func TestWellnessHandler_RequiresAuth(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodGet, "/api/hydration", nil, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	w = env.Request(http.MethodPost, "/api/steps", map[string]any{"steps": 10}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	w = env.Request(http.MethodGet, "/api/sleep", nil, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	w = env.Request(http.MethodGet, "/api/mood", nil, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWellnessHandler_SleepCrossesMidnight(t *testing.T) {
	env := testutil.NewEnv(t)
	_, email := env.CreateVerifiedUser(strongPassword)
	token := env.Login(email, strongPassword).AccessToken

	w := env.Request(http.MethodPost, "/api/sleep", map[string]any{
		"bed_time":     "2025-12-07T23:15:00Z",
		"wake_up_time": "2025-12-07T06:45:00Z",
		"quality":      "Good",
	}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created sleepPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &created)
	require.InDelta(t, 7.5, created.Hours, 0.0001)

	w = env.Request(http.MethodPut, "/api/sleep/"+created.ID, map[string]any{
		"bed_time":     "2025-12-07T22:00:00Z",
		"wake_up_time": "2025-12-08T06:00:00Z",
		"quality":      "Great",
	}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated sleepPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &updated)
	require.InDelta(t, 8.0, updated.Hours, 0.0001)
	require.Equal(t, "Great", updated.Quality)

	w = env.Request(http.MethodPost, "/api/sleep", map[string]any{"bed_time": "2025-12-07T22:00:00Z", "wake_up_time": "2025-12-08T06:00:00Z"}, token)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, testutil.DecodeResponse(t, w).Error.Message, "quality must not be blank")

	w = env.Request(http.MethodDelete, "/api/sleep/"+created.ID, nil, token)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestWellnessHandler_MoodCRUD(t *testing.T) {
	env := testutil.NewEnv(t)
	_, ownerEmail := env.CreateVerifiedUser(strongPassword)
	_, otherEmail := env.CreateVerifiedUser(strongPassword)
	owner := env.Login(ownerEmail, strongPassword).AccessToken
	other := env.Login(otherEmail, strongPassword).AccessToken

	w := env.Request(http.MethodPost, "/api/mood", map[string]any{"mood": "Happy", "notes": "slept well"}, owner)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created moodPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &created)
	require.Equal(t, "slept well", created.Notes)

	w = env.Request(http.MethodGet, "/api/mood/"+created.ID, nil, other)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = env.Request(http.MethodGet, "/api/mood", nil, other)
	require.Equal(t, http.StatusOK, w.Code)
	var otherList []moodPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &otherList)
	require.Empty(t, otherList)

	w = env.Request(http.MethodPut, "/api/mood/"+created.ID, map[string]any{"mood": "Anxious"}, owner)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodGet, "/api/mood", nil, owner)
	require.Equal(t, http.StatusOK, w.Code)
	var list []moodPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &list)
	require.Len(t, list, 1)
	require.Equal(t, "Anxious", list[0].Mood)
	require.Empty(t, list[0].Notes)

	w = env.Request(http.MethodDelete, "/api/mood/"+created.ID, nil, other)
	require.Equal(t, http.StatusNotFound, w.Code)
	w = env.Request(http.MethodDelete, "/api/mood/"+created.ID, nil, owner)
	require.Equal(t, http.StatusOK, w.Code)
}
