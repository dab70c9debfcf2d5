package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"sgxfeed/internal/calendar"
)

// KeyResolver maps a business date to the upstream download key.
type KeyResolver interface {
	Key(ctx context.Context, businessDate time.Time) (key string, ok bool, err error)
}

// indexKey accepts the key as a JSON string or number.
type indexKey string

func (k *indexKey) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*k = indexKey(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*k = indexKey(n.String())
	return nil
}

type indexDocument struct {
	Items []struct {
		Date string   `json:"Date"`
		Key  indexKey `json:"key"`
	} `json:"items"`
}

// IndexResolver reads the feed index, which lists the last few published dates and their keys.
// The index is cached for ttl; concurrent loads share a single request.
type IndexResolver struct {
	client    *http.Client
	url       string
	userAgent string
	limiter   *rate.Limiter
	ttl       time.Duration
	now       func() time.Time

	group    singleflight.Group
	mu       sync.Mutex
	keys     map[time.Time]string
	loadedAt time.Time
}

// NewIndexResolver creates a resolver for the index at indexURL.
func NewIndexResolver(client *http.Client, indexURL, userAgent string, limiter *rate.Limiter, ttl time.Duration) *IndexResolver {
	return &IndexResolver{
		client:    client,
		url:       indexURL,
		userAgent: userAgent,
		limiter:   limiter,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Key returns the download key for businessDate; ok is false when the index does not list the date.
func (r *IndexResolver) Key(ctx context.Context, businessDate time.Time) (string, bool, error) {
	keys, err := r.index(ctx)
	if err != nil {
		return "", false, err
	}
	key, ok := keys[calendar.Date(businessDate)]
	return key, ok, nil
}

// Dates returns the published dates, newest first.
func (r *IndexResolver) Dates(ctx context.Context) ([]time.Time, error) {
	keys, err := r.index(ctx)
	if err != nil {
		return nil, err
	}
	dates := make([]time.Time, 0, len(keys))
	for d := range keys {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })
	return dates, nil
}

func (r *IndexResolver) cached() map[time.Time]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.keys != nil && r.now().Sub(r.loadedAt) < r.ttl {
		return r.keys
	}
	return nil
}

func (r *IndexResolver) index(ctx context.Context) (map[time.Time]string, error) {
	if keys := r.cached(); keys != nil {
		return keys, nil
	}

	v, err, _ := r.group.Do("index", func() (any, error) {
		if keys := r.cached(); keys != nil {
			return keys, nil
		}
		keys, err := r.load(ctx)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.keys, r.loadedAt = keys, r.now()
		r.mu.Unlock()
		return keys, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[time.Time]string), nil
}

func (r *IndexResolver) load(ctx context.Context) (map[time.Time]string, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{URL: r.url, Err: err}
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, &TransportError{URL: r.url, Err: err}
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: r.url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &TransportError{URL: r.url, StatusCode: resp.StatusCode}
	}

	var doc indexDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, &TransportError{URL: r.url, Err: fmt.Errorf("decode index: %w", err)}
	}

	keys := make(map[time.Time]string, len(doc.Items))
	for _, item := range doc.Items {
		if item.Date == "" || item.Key == "" {
			continue
		}
		d, err := calendar.Parse(item.Date)
		if err != nil {
			continue
		}
		keys[d] = string(item.Key)
	}
	return keys, nil
}
