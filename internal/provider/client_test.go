package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noThrottle() *Throttler { return NewThrottler(0) }

func TestListOrders_FollowsCursorUntilExhaustion(t *testing.T) {
	var seenCursors []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/orders", r.URL.Path)
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

		cursor := r.URL.Query().Get("cursor")
		seenCursors = append(seenCursors, cursor)

		switch cursor {
		case "":
			fmt.Fprint(w, `{"items":[{"id":1,"created_date":"2026-03-10T10:00:00Z"}],"next":"p2"}`)
		case "p2":
			fmt.Fprint(w, `{"items":[{"id":2,"created_date":"2026-03-10T10:01:00Z"}],"next":""}`)
		default:
			t.Fatalf("unexpected cursor %q", cursor)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test")
	orders, complete, err := c.ListOrders(context.Background(), "tok-1", noThrottle(),
		time.Now().Add(-time.Hour), time.Now(), 10)

	require.NoError(t, err)
	assert.True(t, complete)
	require.Len(t, orders, 2)
	assert.Equal(t, int64(1), orders[0].ID)
	assert.Equal(t, int64(2), orders[1].ID)
	assert.Equal(t, []string{"", "p2"}, seenCursors)
}

func TestListOrders_PageCeilingMarksIncomplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Always another page pending.
		fmt.Fprint(w, `{"items":[{"id":7,"created_date":"2026-03-10T10:00:00Z"}],"next":"more"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test")
	orders, complete, err := c.ListOrders(context.Background(), "tok", noThrottle(),
		time.Now().Add(-time.Hour), time.Now(), 3)

	require.NoError(t, err)
	assert.False(t, complete, "a capped listing must not be treated as complete")
	assert.Len(t, orders, 3)
}

func TestListOrders_RateLimitAbortsPaging(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			fmt.Fprint(w, `{"items":[{"id":1,"created_date":"2026-03-10T10:00:00Z"}],"next":"p2"}`)
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test")
	orders, complete, err := c.ListOrders(context.Background(), "tok", noThrottle(),
		time.Now().Add(-time.Hour), time.Now(), 10)

	assert.True(t, IsRateLimited(err))
	assert.False(t, complete)
	assert.Len(t, orders, 1, "items fetched before the 429 are kept")
	assert.Equal(t, 2, calls, "no retry within the same run")
}

func TestListOrders_ServerErrorSurfacesTyped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test")
	_, complete, err := c.ListOrders(context.Background(), "tok", noThrottle(),
		time.Now().Add(-time.Hour), time.Now(), 10)

	assert.False(t, complete)
	assert.True(t, IsServerError(err))
	assert.False(t, IsRateLimited(err))
}

func TestListShipments_StatusFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/shipments", r.URL.Path)
		require.Equal(t, "Processing", r.URL.Query().Get("status"))
		fmt.Fprint(w, `{"items":[{"id":500,"order_id":100,"status":"Processing","created_date":"2026-03-10T10:00:00Z"}],"next":""}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test")
	shipments, complete, err := c.ListShipments(context.Background(), "tok", noThrottle(),
		time.Now().Add(-time.Hour), time.Now(), "Processing", 10)

	require.NoError(t, err)
	assert.True(t, complete)
	require.Len(t, shipments, 1)
	assert.Equal(t, int64(500), shipments[0].ID)
	assert.Equal(t, int64(100), shipments[0].OrderID)
}

func TestErrorClassifiers(t *testing.T) {
	assert.True(t, IsAuthError(&APIError{StatusCode: 401}))
	assert.True(t, IsAuthError(&APIError{StatusCode: 403}))
	assert.False(t, IsAuthError(&APIError{StatusCode: 500}))
	assert.True(t, IsRateLimited(fmt.Errorf("wrapped: %w", &APIError{StatusCode: 429})))
	assert.False(t, IsRateLimited(fmt.Errorf("plain error")))
}

func TestListOrders_MalformedRecordSkipped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[{"id":"not-a-number"},{"id":5,"created_date":"2026-03-10T10:00:00Z"}],"next":""}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test")
	orders, complete, err := c.ListOrders(context.Background(), "tok", noThrottle(),
		time.Now().Add(-time.Hour), time.Now(), 10)

	assert.Error(t, err)
	assert.False(t, complete, "a listing with undecodable records is not authoritative")
	require.Len(t, orders, 1)
	assert.Equal(t, int64(5), orders[0].ID)
}

func TestOrderUnmarshal_CapturesUnknownFields(t *testing.T) {
	payload := `{"id":9,"status":"Processing","created_date":"2026-03-10T10:00:00Z","brand_new_field":{"x":1}}`

	var o Order
	require.NoError(t, json.Unmarshal([]byte(payload), &o))

	assert.Equal(t, int64(9), o.ID)
	require.Contains(t, o.Extra, "brand_new_field")
	assert.NotContains(t, o.Extra, "status", "declared fields are not extras")
}

func TestOrderUnmarshal_NoExtrasNoAllocation(t *testing.T) {
	var o Order
	require.NoError(t, json.Unmarshal([]byte(`{"id":9,"created_date":"2026-03-10T10:00:00Z"}`), &o))
	assert.Nil(t, o.Extra)
}

func TestGetShipmentTimeline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/shipments/77/timeline", r.URL.Path)
		fmt.Fprint(w, `[{"log_type_id":"LT1","log_type_name":"Picked","timestamp":"2026-03-10T09:00:00Z"},
		                {"log_type_id":"LT2","log_type_name":"Delivered","timestamp":"2026-03-10T18:00:00Z"}]`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test")
	events, err := c.GetShipmentTimeline(context.Background(), "tok", noThrottle(), 77)

	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Delivered", events[1].Name)
}

func TestGetOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/orders/42", r.URL.Path)
		fmt.Fprint(w, `{"id":42,"created_date":"2026-03-10T10:00:00Z","products":[{"id":1,"sku":"A","quantity":2}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test")
	o, err := c.GetOrder(context.Background(), "tok", noThrottle(), 42)

	require.NoError(t, err)
	assert.Equal(t, int64(42), o.ID)
	require.Len(t, o.Products, 1)
	assert.Equal(t, int64(2), o.Products[0].Quantity)
}
