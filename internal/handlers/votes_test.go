package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"

	"github.com/rankfeed/backend/internal/database"
	"github.com/rankfeed/backend/internal/server"
)

var (
	dbOnce sync.Once
	dbConn *gorm.DB
	dbErr  error
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database integration test in -short mode")
	}
	t.Setenv("JWT_SECRET", "handler-test-secret")
	gin.SetMode(gin.TestMode)

	dbOnce.Do(func() {
		ctx := context.Background()
		pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
			postgres.WithDatabase("rankfeed_handlers_test"),
			postgres.WithUsername("postgres"),
			postgres.WithPassword("postgres"),
			postgres.BasicWaitStrategies(),
		)
		if err != nil {
			dbErr = err
			return
		}

		dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			dbErr = err
			return
		}

		db, err := database.Connect(dsn)
		if err != nil {
			dbErr = err
			return
		}
		if err := database.Migrate(db); err != nil {
			dbErr = err
			return
		}
		dbConn = db
	})
	if dbErr != nil {
		t.Fatalf("starting postgres container: %v", dbErr)
	}

	return server.New(nil, dbConn).RegisterRoutes()
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var decoded map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

func registerUser(t *testing.T, router *gin.Engine, name string) string {
	t.Helper()
	w, resp := doJSON(t, router, http.MethodPost, "/api/register", "", gin.H{
		"username": name,
		"email":    name + "@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code, "register failed: %v", resp)
	token, _ := resp["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func createItem(t *testing.T, router *gin.Engine, token, title string) int {
	t.Helper()
	w, resp := doJSON(t, router, http.MethodPost, "/api/items", token, gin.H{"title": title})
	require.Equal(t, http.StatusCreated, w.Code, "create item failed: %v", resp)
	id, ok := resp["id"].(float64)
	require.True(t, ok)
	return int(id)
}

func TestVoteEndpointFlow(t *testing.T) {
	router := newTestRouter(t)

	tokenA := registerUser(t, router, "flow_voter_a")
	tokenB := registerUser(t, router, "flow_voter_b")
	itemID := createItem(t, router, tokenA, "vote flow item")

	// A casts up
	w, resp := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/items/%d/vote", itemID), tokenA, gin.H{"vote_type": 1})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "created", resp["outcome"])
	assert.EqualValues(t, 1, resp["upvotes"])
	assert.EqualValues(t, 0, resp["downvotes"])

	// A repeats the same vote: idempotent
	w, resp = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/items/%d/vote", itemID), tokenA, gin.H{"vote_type": 1})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "unchanged", resp["outcome"])
	assert.EqualValues(t, 1, resp["upvotes"])

	// B casts down
	w, resp = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/items/%d/vote", itemID), tokenB, gin.H{"vote_type": -1})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "created", resp["outcome"])
	assert.EqualValues(t, 1, resp["upvotes"])
	assert.EqualValues(t, 1, resp["downvotes"])

	// A flips to down
	w, resp = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/items/%d/vote", itemID), tokenA, gin.H{"vote_type": -1})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "flipped", resp["outcome"])
	assert.EqualValues(t, 0, resp["upvotes"])
	assert.EqualValues(t, 2, resp["downvotes"])

	// A retracts
	w, resp = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/items/%d/vote", itemID), tokenA, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["removed"])
	assert.EqualValues(t, 0, resp["upvotes"])
	assert.EqualValues(t, 1, resp["downvotes"])

	// Public read reflects the final counters
	w, resp = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/items/%d", itemID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, resp["upvotes"])
	assert.EqualValues(t, 1, resp["downvotes"])
}

func TestVoteUnknownItem(t *testing.T) {
	router := newTestRouter(t)
	token := registerUser(t, router, "unknown_item_voter")

	w, _ := doJSON(t, router, http.MethodPost, "/api/items/999999999/vote", token, gin.H{"vote_type": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVoteRequiresAuth(t *testing.T) {
	router := newTestRouter(t)

	w, _ := doJSON(t, router, http.MethodPost, "/api/items/1/vote", "", gin.H{"vote_type": 1})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVoteRejectsBadKind(t *testing.T) {
	router := newTestRouter(t)
	token := registerUser(t, router, "bad_kind_voter")
	itemID := createItem(t, router, token, "bad kind item")

	w, _ := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/items/%d/vote", itemID), token, gin.H{"vote_type": 2})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRetractWithoutVote(t *testing.T) {
	router := newTestRouter(t)
	token := registerUser(t, router, "retract_nothing_voter")
	itemID := createItem(t, router, token, "retract nothing item")

	w, resp := doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/items/%d/vote", itemID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, resp["removed"])
}

func TestGetMyVote(t *testing.T) {
	router := newTestRouter(t)
	token := registerUser(t, router, "my_vote_voter")
	itemID := createItem(t, router, token, "my vote item")

	w, resp := doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/items/%d/vote", itemID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, resp["vote"])

	_, _ = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/items/%d/vote", itemID), token, gin.H{"vote_type": -1})

	w, resp = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/items/%d/vote", itemID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	vote, ok := resp["vote"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "down", vote["kind"])
}

func TestDeleteItemRemovesVotes(t *testing.T) {
	router := newTestRouter(t)
	tokenA := registerUser(t, router, "delete_owner")
	tokenB := registerUser(t, router, "delete_bystander")
	itemID := createItem(t, router, tokenA, "doomed item")

	_, _ = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/items/%d/vote", itemID), tokenB, gin.H{"vote_type": 1})

	// Only the owner may delete
	w, _ := doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/items/%d", itemID), tokenB, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/items/%d", itemID), tokenA, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/items/%d", itemID), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Voting on the deleted item now 404s
	w, _ = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/items/%d/vote", itemID), tokenB, gin.H{"vote_type": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
