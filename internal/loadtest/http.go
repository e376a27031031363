package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/battle64/pkg/logger"
)

// Submission outcomes.
const (
	outcomeAccepted  = "accepted"
	outcomeDuplicate = "duplicate"
	outcomeRejected  = "rejected"
	outcomeFailed    = "failed"
)

type client struct {
	http    *http.Client
	baseURL string
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{http: &http.Client{Timeout: timeout}, baseURL: baseURL}
}

func (c *client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}

func (c *client) health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return fmt.Errorf("connect to service: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *client) submit(ctx context.Context, eventID string, sub Submission) (AckResponse, string) { //nolint:gocritic // hugeParam: posted by value
	resp, err := c.do(ctx, http.MethodPost, "/events/"+url.PathEscape(eventID)+"/submissions", sub)
	if err != nil {
		return AckResponse{}, outcomeFailed
	}
	defer resp.Body.Close()

	var ack AckResponse
	_ = json.NewDecoder(resp.Body).Decode(&ack)
	switch resp.StatusCode {
	case http.StatusAccepted:
		return ack, outcomeAccepted
	case http.StatusOK:
		return ack, outcomeDuplicate
	case http.StatusBadRequest, http.StatusTooManyRequests:
		return ack, outcomeRejected
	default:
		return ack, outcomeFailed
	}
}

func (c *client) leaderboard(ctx context.Context, eventID string, limit int) ([]Entry, error) {
	path := "/events/" + url.PathEscape(eventID) + "/leaderboard"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("leaderboard returned status %d", resp.StatusCode)
	}
	var body struct {
		Entries []Entry `json:"entries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode leaderboard: %w", err)
	}
	return body.Entries, nil
}

// eventEntries returns how many entries the service holds for eventID.
func (c *client) eventEntries(ctx context.Context, eventID string) (int, error) {
	resp, err := c.do(ctx, http.MethodGet, "/events", nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("events returned status %d", resp.StatusCode)
	}
	var body struct {
		Events []struct {
			EventID string `json:"event_id"`
			Entries int    `json:"entries"`
		} `json:"events"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode events: %w", err)
	}
	for _, e := range body.Events {
		if e.EventID == eventID {
			return e.Entries, nil
		}
	}
	return 0, nil
}

// submitAll posts subs with cfg.Workers concurrent workers.
func submitAll(ctx context.Context, c *client, cfg *Config, subs []Submission, stats *Stats) {
	log := logger.Get()
	log.Info(ctx, "submitting", logger.Int("submissions", len(subs)), logger.Int("workers", cfg.Workers))

	var accepted, duplicate, rejected, failed, repaired, submitted atomic.Int64
	jobs := make(chan Submission, cfg.Workers*2)
	var wg sync.WaitGroup

	for range cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sub := range jobs {
				ack, outcome := c.submit(ctx, cfg.EventID, sub)
				n := submitted.Add(1)
				switch outcome {
				case outcomeAccepted:
					accepted.Add(1)
					if !ack.ValidFormat {
						repaired.Add(1)
					}
				case outcomeDuplicate:
					duplicate.Add(1)
				case outcomeRejected:
					rejected.Add(1)
				default:
					failed.Add(1)
				}
				if cfg.Verbose && n%1000 == 0 {
					log.Info(ctx, "progress", logger.Int("submitted", int(n)), logger.Int("total", len(subs)))
				}
			}
		}()
	}

	func() {
		defer close(jobs)
		for _, sub := range subs {
			select {
			case <-ctx.Done():
				return
			case jobs <- sub:
			}
		}
	}()
	wg.Wait()

	stats.Submitted = int(submitted.Load())
	stats.Accepted = int(accepted.Load())
	stats.Duplicate = int(duplicate.Load())
	stats.Rejected = int(rejected.Load())
	stats.Failed = int(failed.Load())
	stats.Repaired = int(repaired.Load())

	log.Info(ctx, "submission completed",
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Int("repaired", stats.Repaired),
	)
}
