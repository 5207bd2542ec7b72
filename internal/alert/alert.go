package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hazz-dev/easycheck/internal/state"
)

const sendTimeout = 10 * time.Second

// Alerter sends webhook notifications when the aggregated health status flips.
type Alerter struct {
	webhookURL string
	cooldown   time.Duration
	client     *http.Client
	lastAlert  time.Time
	primed     bool
	mu         sync.Mutex
	wg         sync.WaitGroup
	logger     *slog.Logger
}

// New creates a new Alerter. Pass nil logger to use the default logger.
func New(webhookURL string, cooldown time.Duration, logger *slog.Logger) *Alerter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Alerter{
		webhookURL: webhookURL,
		cooldown:   cooldown,
		client:     &http.Client{Timeout: sendTimeout},
		logger:     logger,
	}
}

type webhookFailure struct {
	Check  string `json:"check_name"`
	Reason string `json:"failure_reason"`
	Kind   string `json:"kind,omitempty"`
}

type webhookPayload struct {
	Status         string           `json:"status"`
	PreviousStatus string           `json:"previous_status"`
	Failures       []webhookFailure `json:"failures"`
	EvaluatedAt    string           `json:"evaluated_at"`
	Source         string           `json:"source"`
}

// Notify sends a webhook if the status changed and the cooldown has elapsed.
// The first call only establishes the baseline, since the previous snapshot
// is then the synthetic startup one.
func (a *Alerter) Notify(prev, next state.Snapshot) {
	a.mu.Lock()
	if !a.primed {
		a.primed = true
		a.mu.Unlock()
		return
	}
	if prev.Status == next.Status {
		a.mu.Unlock()
		return
	}
	if !a.lastAlert.IsZero() && time.Since(a.lastAlert) < a.cooldown {
		a.mu.Unlock()
		a.logger.Info("alert suppressed by cooldown", "status", next.Status)
		return
	}
	a.lastAlert = time.Now()
	a.mu.Unlock()

	// Send asynchronously so Notify doesn't block the scheduler.
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.send(prev.Status, next); err != nil {
			a.logger.Error("sending webhook", "url", a.webhookURL, "error", err)
		}
	}()
}

// Wait blocks until every in-flight webhook has been sent or has failed.
func (a *Alerter) Wait() {
	a.wg.Wait()
}

func (a *Alerter) send(prev state.Status, next state.Snapshot) error {
	payload := webhookPayload{
		Status:         string(next.Status),
		PreviousStatus: string(prev),
		Failures:       make([]webhookFailure, 0, len(next.Failures)),
		EvaluatedAt:    next.EvaluatedAt.UTC().Format(time.RFC3339),
		Source:         "easycheck",
	}
	for _, f := range next.Failures {
		payload.Failures = append(payload.Failures, webhookFailure{
			Check:  f.Check,
			Reason: f.Reason,
			Kind:   string(f.Kind),
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		a.logger.Warn("webhook returned non-2xx status", "status", resp.StatusCode)
	}
	return nil
}
