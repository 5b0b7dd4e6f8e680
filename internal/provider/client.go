package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client issues authenticated requests against the fulfillment provider's
// HTTP API. One Client is shared across tenants; the bearer token is supplied
// per call because every tenant authenticates with its own credential.
type Client struct {
	baseURL     string
	userAgent   string
	httpClient  *http.Client
	observePage PageObserver
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying http.Client (used in tests).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// PageObserver is invoked once per listing page fetched, with the collection
// path (e.g. "/orders"). Feeds page-level metrics without coupling the client
// to a metrics registry.
type PageObserver func(path string)

// WithPageObserver registers a callback for every listing page fetched.
func WithPageObserver(fn PageObserver) ClientOption {
	return func(c *Client) {
		c.observePage = fn
	}
}

// NewClient creates a provider API client for the given base URL.
func NewClient(baseURL, userAgent string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// page is the provider's pagination envelope: a batch of records plus an
// opaque continuation cursor. An empty cursor means the listing is exhausted.
type page struct {
	Items []json.RawMessage `json:"items"`
	Next  string            `json:"next"`
}

// get performs one authenticated GET and decodes the response body into out.
// Non-2xx responses become *APIError.
func (c *Client) get(ctx context.Context, token, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Path: path, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}

// fetchAll pages through one collection until the cursor is exhausted, the
// configured page ceiling is hit, or an error interrupts the loop.
//
// complete reports whether the returned items are a full enumeration of the
// collection for the given filter. Callers MUST NOT run reconciliation on an
// incomplete listing. Partial items already fetched are returned alongside a
// non-nil error so the caller can still upsert them.
func (c *Client) fetchAll(ctx context.Context, token, path string, query url.Values, th *Throttler, maxPages int) (items []json.RawMessage, complete bool, err error) {
	cursor := ""
	for pages := 0; maxPages <= 0 || pages < maxPages; pages++ {
		if err := th.Wait(ctx); err != nil {
			return items, false, err
		}

		q := cloneValues(query)
		if cursor != "" {
			q.Set("cursor", cursor)
		}

		var p page
		if err := c.get(ctx, token, path, q, &p); err != nil {
			return items, false, err
		}
		if c.observePage != nil {
			c.observePage(path)
		}
		items = append(items, p.Items...)

		if p.Next == "" {
			return items, true, nil
		}
		cursor = p.Next
	}
	// Page ceiling reached with a cursor still pending.
	return items, false, nil
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+1)
	for k, vals := range v {
		out[k] = vals
	}
	return out
}

func windowQuery(start, end time.Time) url.Values {
	q := url.Values{}
	q.Set("start_date", start.UTC().Format(time.RFC3339))
	q.Set("end_date", end.UTC().Format(time.RFC3339))
	return q
}

// decodeItems unmarshals each raw record, collecting per-record failures
// instead of aborting the batch. A malformed record upstream must never cost
// the rest of the page.
func decodeItems[T any](raw []json.RawMessage) ([]T, []error) {
	var (
		out  = make([]T, 0, len(raw))
		errs []error
	)
	for i, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			errs = append(errs, fmt.Errorf("decode record %d: %w", i, err))
			continue
		}
		out = append(out, v)
	}
	return out, errs
}

// ListOrders fetches orders created within [start, end), with line items and
// shipments embedded.
func (c *Client) ListOrders(ctx context.Context, token string, th *Throttler, start, end time.Time, maxPages int) ([]Order, bool, error) {
	raw, complete, err := c.fetchAll(ctx, token, "/orders", windowQuery(start, end), th, maxPages)
	orders, decodeErrs := decodeItems[Order](raw)
	return orders, complete && len(decodeErrs) == 0, firstError(err, decodeErrs)
}

// ListShipments fetches shipments created within [start, end). An optional
// status filter narrows the listing (e.g. "open" for undelivered work).
func (c *Client) ListShipments(ctx context.Context, token string, th *Throttler, start, end time.Time, status string, maxPages int) ([]Shipment, bool, error) {
	q := windowQuery(start, end)
	if status != "" {
		q.Set("status", status)
	}
	raw, complete, err := c.fetchAll(ctx, token, "/shipments", q, th, maxPages)
	shipments, decodeErrs := decodeItems[Shipment](raw)
	return shipments, complete && len(decodeErrs) == 0, firstError(err, decodeErrs)
}

// ListTransactions fetches billable events dated within [start, end).
func (c *Client) ListTransactions(ctx context.Context, token string, th *Throttler, start, end time.Time, maxPages int) ([]Transaction, bool, error) {
	raw, complete, err := c.fetchAll(ctx, token, "/transactions", windowQuery(start, end), th, maxPages)
	txns, decodeErrs := decodeItems[Transaction](raw)
	return txns, complete && len(decodeErrs) == 0, firstError(err, decodeErrs)
}

// ListReturns fetches return orders inserted within [start, end).
func (c *Client) ListReturns(ctx context.Context, token string, th *Throttler, start, end time.Time, maxPages int) ([]Return, bool, error) {
	raw, complete, err := c.fetchAll(ctx, token, "/returns", windowQuery(start, end), th, maxPages)
	returns, decodeErrs := decodeItems[Return](raw)
	return returns, complete && len(decodeErrs) == 0, firstError(err, decodeErrs)
}

// ListReceivingOrders fetches warehouse receiving orders inserted within
// [start, end).
func (c *Client) ListReceivingOrders(ctx context.Context, token string, th *Throttler, start, end time.Time, maxPages int) ([]ReceivingOrder, bool, error) {
	raw, complete, err := c.fetchAll(ctx, token, "/receiving", windowQuery(start, end), th, maxPages)
	ros, decodeErrs := decodeItems[ReceivingOrder](raw)
	return ros, complete && len(decodeErrs) == 0, firstError(err, decodeErrs)
}

// GetOrder fetches a single order by its provider ID, children embedded.
func (c *Client) GetOrder(ctx context.Context, token string, th *Throttler, orderID int64) (*Order, error) {
	if err := th.Wait(ctx); err != nil {
		return nil, err
	}
	var o Order
	if err := c.get(ctx, token, "/orders/"+strconv.FormatInt(orderID, 10), nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// GetShipment fetches a single shipment by its provider ID, children embedded.
func (c *Client) GetShipment(ctx context.Context, token string, th *Throttler, shipmentID int64) (*Shipment, error) {
	if err := th.Wait(ctx); err != nil {
		return nil, err
	}
	var s Shipment
	if err := c.get(ctx, token, "/shipments/"+strconv.FormatInt(shipmentID, 10), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetShipmentTimeline fetches the full checkpoint timeline for one shipment.
func (c *Client) GetShipmentTimeline(ctx context.Context, token string, th *Throttler, shipmentID int64) ([]TimelineEvent, error) {
	if err := th.Wait(ctx); err != nil {
		return nil, err
	}
	var events []TimelineEvent
	if err := c.get(ctx, token, "/shipments/"+strconv.FormatInt(shipmentID, 10)+"/timeline", nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// firstError surfaces the transport error if present, otherwise the first
// decode error. Decode errors are secondary: they spoil completeness but the
// transport error explains why paging stopped.
func firstError(transportErr error, decodeErrs []error) error {
	if transportErr != nil {
		return transportErr
	}
	if len(decodeErrs) > 0 {
		return decodeErrs[0]
	}
	return nil
}
