package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seating-backend/config"
	"seating-backend/internal/api"
	"seating-backend/internal/db"
	"seating-backend/internal/metrics"
	"seating-backend/internal/store"
)

type client struct {
	t   *testing.T
	srv *httptest.Server
}

func (c client) do(method, path string, body any) (int, map[string]any) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, c.srv.URL+path, &buf)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	var out map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(c.t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (c client) id(method, path string, body any, want int) int64 {
	c.t.Helper()
	status, out := c.do(method, path, body)
	require.Equal(c.t, want, status, out)
	return int64(out["id"].(float64))
}

func table(def, maxChairs int) map[string]any {
	return map[string]any{
		"corners": map[string]any{
			"top_left":     map[string]float64{"x": 0, "y": 4},
			"top_right":    map[string]float64{"x": 4, "y": 4},
			"bottom_left":  map[string]float64{"x": 0, "y": 0},
			"bottom_right": map[string]float64{"x": 4, "y": 0},
		},
		"default_chairs": def,
		"max_chairs":     maxChairs,
	}
}

func newServer(t *testing.T) (client, *metrics.Metrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gormDB, err := db.Init(&config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		LogLevel: "silent",
	})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	m := metrics.New()
	opts := store.DefaultOptions()
	opts.Metrics = m
	router := api.NewRouter(store.NewGormStore(gormDB, opts), api.RouterConfig{
		RateLimit: 10000,
		RateBurst: 10000,
		CacheTTL:  time.Minute,
		Metrics:   m,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return client{t: t, srv: srv}, m
}

// TestFloorPlanToBooking builds a layout over HTTP, books against the table
// set placed in it, and checks that splitting the set keeps the booking.
func TestFloorPlanToBooking(t *testing.T) {
	c, _ := newServer(t)

	t1 := c.id(http.MethodPost, "/api/tables", table(2, 4), http.StatusCreated)
	t2 := c.id(http.MethodPost, "/api/tables", table(4, 6), http.StatusCreated)
	set := c.id(http.MethodPost, "/api/table_sets", map[string]any{"table_ids": []int64{t1, t2}}, http.StatusCreated)

	layout := c.id(http.MethodPost, "/api/layouts", map[string]any{"name": "Friday"}, http.StatusCreated)
	section := c.id(http.MethodPost, "/api/sections", map[string]any{"name": "Patio"}, http.StatusCreated)
	slot := fmt.Sprintf("/api/layouts/%d/sections/3", layout)

	status, _ := c.do(http.MethodPut, slot, map[string]any{"section_id": section})
	require.Equal(t, http.StatusOK, status)
	status, out := c.do(http.MethodPost, fmt.Sprintf("%s/table_sets/%d", slot, set), nil)
	require.Equal(t, http.StatusOK, status, out)
	assert.ElementsMatch(t, []any{float64(t1), float64(t2)}, out["table_ids"])

	customer := c.id(http.MethodPost, "/api/customers", map[string]any{
		"first_name": "Edsger", "last_name": "Dijkstra", "phone_number": "(555) 010-2030",
	}, http.StatusOK)

	res := c.id(http.MethodPost, "/api/reservations", map[string]any{
		"customer_id":          customer,
		"num_people":           9,
		"num_highchairs":       1,
		"reservation_datetime": "2031-03-14 18:45:00",
		"table_set_ids":        []int64{set},
	}, http.StatusCreated)

	// Eleven people exceed the combined maximum of ten chairs.
	status, out = c.do(http.MethodPost, "/api/reservations", map[string]any{
		"customer":             map[string]any{"first_name": "Big", "last_name": "Party", "phone_number": "(555) 999-0000"},
		"num_people":           11,
		"reservation_datetime": "2031-03-15 18:45:00",
		"table_set_ids":        []int64{set},
	})
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "InsufficientCapacity", out["error"].(map[string]any)["code"])

	status, out = c.do(http.MethodPost, fmt.Sprintf("/api/table_sets/%d/split", set), nil)
	require.Equal(t, http.StatusOK, status, out)

	status, out = c.do(http.MethodGet, slot+"/tables", nil)
	require.Equal(t, http.StatusOK, status)
	assert.ElementsMatch(t, []any{float64(t1), float64(t2)}, out["table_ids"])

	status, out = c.do(http.MethodGet, fmt.Sprintf("/api/reservations/%d", res), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(set), out["table_set_id"])
	assert.Equal(t, "confirmed", out["status"])

	// Tables still linked to a reservation cannot be deleted.
	status, out = c.do(http.MethodDelete, fmt.Sprintf("/api/tables/%d", t1), nil)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "TableInUse", out["error"].(map[string]any)["code"])
}

// TestConcurrentBookingsOverHTTP races several parties for one table at the
// same time; exactly one may win.
func TestConcurrentBookingsOverHTTP(t *testing.T) {
	c, _ := newServer(t)
	tableID := c.id(http.MethodPost, "/api/tables", table(4, 4), http.StatusCreated)

	const parties = 6
	statuses := make([]int, parties)
	var wg sync.WaitGroup
	for i := 0; i < parties; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			statuses[i], _ = c.do(http.MethodPost, "/api/reservations", map[string]any{
				"customer": map[string]any{
					"first_name":   "Party",
					"last_name":    fmt.Sprintf("No%d", i),
					"phone_number": "(555) 123-0000",
				},
				"num_people":           2,
				"reservation_datetime": "2031-01-01 20:00:00",
				"table_ids":            []int64{tableID},
			})
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, s := range statuses {
		switch s {
		case http.StatusCreated:
			won++
		case http.StatusConflict:
			lost++
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, parties-1, lost)

	resp, err := http.Get(c.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `seating_operations_total{op="book_reservation",outcome="ok"} 1`)
	assert.Contains(t, string(body), fmt.Sprintf(`seating_operations_total{op="book_reservation",outcome="conflict"} %d`, parties-1))
}
