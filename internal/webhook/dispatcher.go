package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"wagateway/pkg/env"
	"wagateway/pkg/log"
)

type Config struct {
	URL           string
	AllowedEvents []string
	Secret        string
	Workers       int
	QueueSize     int
	Timeout       time.Duration
}

func ConfigFromEnv() Config {
	allowed := env.GetEnvStringOrDefault("APP_WEBHOOK_ALLOWED_EVENTS", AllowAll)
	return Config{
		URL:           env.GetEnvStringOrDefault("APP_WEBHOOK_URL", ""),
		AllowedEvents: strings.Split(allowed, ","),
		Secret:        env.GetEnvStringOrDefault("APP_WEBHOOK_SECRET", ""),
		Workers:       env.GetEnvIntOrDefault("WEBHOOK_WORKERS", 4),
		QueueSize:     env.GetEnvIntOrDefault("WEBHOOK_QUEUE_SIZE", 1000),
		Timeout:       env.GetEnvDurationOrDefault("WEBHOOK_TIMEOUT", 10*time.Second),
	}
}

// Dispatcher forwards session events to the configured webhook URL.
// Delivery is at-most-once: a single POST per event, no retry, failures
// swallowed. A bounded queue applies backpressure instead of spawning
// unbounded outbound calls.
type Dispatcher struct {
	url        string
	allowed    map[EventType]struct{}
	allowAll   bool
	secret     string
	httpClient *http.Client
	queue      chan Payload
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	allowed := make(map[EventType]struct{})
	allowAll := false
	for _, evt := range cfg.AllowedEvents {
		evt = strings.TrimSpace(evt)
		if evt == "" {
			continue
		}
		if strings.EqualFold(evt, AllowAll) {
			allowAll = true
			continue
		}
		allowed[EventType(evt)] = struct{}{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dispatcher{
		url:        strings.TrimSpace(cfg.URL),
		allowed:    allowed,
		allowAll:   allowAll,
		secret:     cfg.Secret,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		queue:      make(chan Payload, cfg.QueueSize),
		ctx:        ctx,
		cancel:     cancel,
	}

	if d.url != "" {
		for i := 0; i < cfg.Workers; i++ {
			d.wg.Add(1)
			go d.worker()
		}
	}

	return d
}

func (d *Dispatcher) Shutdown() {
	d.cancel()
	close(d.queue)
	d.wg.Wait()
}

// Dispatch enqueues one event for delivery. No-op when no URL is configured
// or the event type is not on the allow-list. Never blocks the caller: a
// full queue drops the event.
func (d *Dispatcher) Dispatch(sessionID string, eventType EventType, data interface{}) {
	if d.url == "" || !d.Allowed(eventType) {
		return
	}

	select {
	case d.queue <- Payload{Instance: sessionID, Type: eventType, Data: data}:
	default:
		log.Session(sessionID).WithField("event", string(eventType)).Warn("Webhook queue full, dropping event")
	}
}

func (d *Dispatcher) Allowed(eventType EventType) bool {
	if d.allowAll {
		return true
	}
	_, ok := d.allowed[eventType]
	return ok
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case payload, ok := <-d.queue:
			if !ok {
				return
			}
			d.deliver(payload)
		}
	}
}

func (d *Dispatcher) deliver(payload Payload) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Session(payload.Instance).WithError(err).Debug("Webhook payload marshal failed")
		return
	}

	req, err := http.NewRequestWithContext(d.ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		log.Session(payload.Instance).WithError(err).Debug("Webhook request build failed")
		return
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Event", string(payload.Type))
	if d.secret != "" {
		req.Header.Set("X-Webhook-Signature", signBody(body, d.secret))
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		log.Session(payload.Instance).WithError(err).Debug("Webhook delivery failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Session(payload.Instance).
			WithField("event", string(payload.Type)).
			WithField("status", resp.StatusCode).
			Debug("Webhook delivery rejected")
	}
}

func signBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
