package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

var downstreamDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "downstream_request_duration_seconds",
		Help:    "Latency of gateway calls to downstream services",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"service", "op", "code"},
)

// Reply is a downstream response kept as raw bytes so the edge can relay it
// verbatim.
type Reply struct {
	Status      int
	ContentType string
	Body        []byte
}

// DownstreamError is a failed downstream call. Status is zero when no HTTP
// response was received.
type DownstreamError struct {
	Service     string
	Op          string
	Status      int
	ContentType string
	Body        []byte
	Err         error
}

func (e *DownstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Service, e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: status %d", e.Service, e.Op, e.Status)
}

func (e *DownstreamError) Unwrap() error { return e.Err }

// HTTPStatus is the status the edge should answer with.
func (e *DownstreamError) HTTPStatus() int {
	switch {
	case e.Status > 0:
		return e.Status
	case errors.Is(e.Err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// Client calls one downstream service over HTTP/JSON.
type Client struct {
	service string
	base    string
	hc      *http.Client
}

func New(service, baseURL string, timeout time.Duration) *Client {
	return &Client{
		service: service,
		base:    strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: timeout},
	}
}

// Do sends body as JSON ([]byte bodies are sent untouched) and returns the
// reply for 2xx statuses. Any other outcome is a *DownstreamError.
func (c *Client) Do(ctx context.Context, op, method, path string, query url.Values, body any, hdr http.Header) (*Reply, error) {
	var rd io.Reader
	if body != nil {
		bs, ok := body.([]byte)
		if !ok {
			var err error
			if bs, err = json.Marshal(body); err != nil {
				return nil, c.fail(op, fmt.Errorf("encode request: %w", err))
			}
		}
		rd = bytes.NewReader(bs)
	}

	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, c.fail(op, err)
	}
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		downstreamDuration.WithLabelValues(c.service, op, "error").Observe(time.Since(start).Seconds())
		return nil, c.fail(op, err)
	}
	defer resp.Body.Close()
	bs, err := io.ReadAll(resp.Body)
	downstreamDuration.WithLabelValues(c.service, op, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, c.fail(op, fmt.Errorf("read response: %w", err))
	}

	rep := &Reply{Status: resp.StatusCode, ContentType: resp.Header.Get("Content-Type"), Body: bs}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &DownstreamError{
			Service: c.service, Op: op,
			Status: rep.Status, ContentType: rep.ContentType, Body: rep.Body,
		}
	}
	return rep, nil
}

func (c *Client) fail(op string, err error) error {
	return &DownstreamError{Service: c.service, Op: op, Err: err}
}
