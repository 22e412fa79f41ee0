package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"backend-veloroute/internal/shared/geo"

	"github.com/cenkalti/backoff/v4"
	"github.com/twpayne/go-polyline"
)

// ErrNoRoutes means the service answered but had no candidate for the pair.
var ErrNoRoutes = errors.New("routing: no candidate routes")

// Client talks to the external route-computation service. Every request
// carries a hard timeout; transient failures are retried briefly, client
// errors are not.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type routesResponse struct {
	Routes []Candidate `json:"routes"`
}

// Routes requests candidate routes from start to end. The preference is a
// hint; the response may contain candidates with other preference tags.
func (c *Client) Routes(ctx context.Context, start, end geo.Point, preference string) ([]Candidate, error) {
	q := url.Values{}
	q.Set("start_lat", strconv.FormatFloat(start.Lat, 'f', -1, 64))
	q.Set("start_lng", strconv.FormatFloat(start.Lng, 'f', -1, 64))
	q.Set("end_lat", strconv.FormatFloat(end.Lat, 'f', -1, 64))
	q.Set("end_lng", strconv.FormatFloat(end.Lng, 'f', -1, 64))
	if preference != "" {
		q.Set("preference", preference)
	}
	reqURL := c.baseURL + "/v1/routes?" + q.Encode()

	operation := func() ([]Candidate, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if c.apiKey != "" {
			req.Header.Set("X-API-Key", c.apiKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("routing: service responded %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, backoff.Permanent(fmt.Errorf("routing: service responded %d", resp.StatusCode))
		}

		var parsed routesResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("routing: malformed response: %w", err))
		}
		return parsed.Routes, nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	candidates, err := backoff.RetryWithData(operation, policy)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNoRoutes
	}

	out := candidates[:0]
	for _, cand := range candidates {
		if len(cand.Points) == 0 {
			pts, err := DecodeGeometry(cand.Geometry)
			if err != nil {
				continue
			}
			cand.Points = pts
		}
		if len(cand.Points) < 2 {
			continue
		}
		out = append(out, cand)
	}
	if len(out) == 0 {
		return nil, ErrNoRoutes
	}
	return out, nil
}

// DecodeGeometry decodes an encoded polyline into route points.
func DecodeGeometry(encoded string) ([]geo.Point, error) {
	if encoded == "" {
		return nil, errors.New("routing: empty geometry")
	}
	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("routing: decode geometry: %w", err)
	}
	pts := make([]geo.Point, len(coords))
	for i, c := range coords {
		pts[i] = geo.Point{Lat: c[0], Lng: c[1]}
	}
	return pts, nil
}

// EncodeGeometry encodes route points for storage.
func EncodeGeometry(points []geo.Point) string {
	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.Lat, p.Lng}
	}
	return string(polyline.EncodeCoords(coords))
}
