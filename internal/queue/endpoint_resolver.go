package queue

import (
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"codesnap/internal/config"
	"codesnap/internal/logging"
)

// Response keys carrying the queue name, per target type.
const (
	functionQueueNameKey = "async_url"
	topicQueueNameKey    = "MQ_QUEUE"
)

const (
	maxResponseBytes = 1 << 20
	maxJitter        = 50 * time.Millisecond
)

// EndpointResolver resolves queue names through the queue registry's REST
// endpoints, with an in-memory cache and bounded retries with backoff.
//
// Function lookups POST to {functionEndpoint}/{name}; topic lookups GET
// {topicEndpoint}/{name}. Names are lower-cased and path-escaped. A missing
// endpoint short-circuits to the fallback for that target type.
type EndpointResolver struct {
	client           *http.Client
	functionEndpoint *url.URL
	topicEndpoint    *url.URL
	maxAttempts      int
	initialBackoff   time.Duration
	logger           *logging.Logger

	functionCache map[string]string
	topicCache    map[string]string
}

// NewEndpointResolver builds a resolver from the process configuration.
// Malformed endpoint URLs are logged and treated as absent.
func NewEndpointResolver(cfg config.QueueResolverConfig, logger *logging.Logger) *EndpointResolver {
	timeout := time.Duration(cfg.HTTPTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	backoff := time.Duration(cfg.InitialBackoffMs) * time.Millisecond
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}

	return &EndpointResolver{
		client:           &http.Client{Timeout: timeout},
		functionEndpoint: parseEndpoint(cfg.FunctionEndpoint, "function", logger),
		topicEndpoint:    parseEndpoint(cfg.TopicEndpoint, "topic", logger),
		maxAttempts:      maxAttempts,
		initialBackoff:   backoff,
		logger:           logger,
		functionCache:    map[string]string{},
		topicCache:       map[string]string{},
	}
}

func parseEndpoint(raw, targetType string, logger *logging.Logger) *url.URL {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		logger.Warn("Ignoring invalid queue resolver endpoint", map[string]interface{}{
			"target_type": targetType,
			"endpoint":    raw,
		})
		return nil
	}
	return u
}

// ResolveForFunction resolves the queue name for an async function call.
func (r *EndpointResolver) ResolveForFunction(ctx context.Context, functionName string) string {
	key := cacheKey(functionName)
	if queueName, ok := r.functionCache[key]; ok {
		return queueName
	}

	queueName, ok := r.resolveWithRetry(ctx, r.functionEndpoint, functionName,
		"function", functionQueueNameKey, http.MethodPost)
	if !ok {
		queueName = fallbackQueueName(functionName)
	}

	r.functionCache[key] = queueName
	return queueName
}

// ResolveForTopic resolves the queue name for a topic publish.
func (r *EndpointResolver) ResolveForTopic(ctx context.Context, topicName string) string {
	key := cacheKey(topicName)
	if queueName, ok := r.topicCache[key]; ok {
		return queueName
	}

	queueName, ok := r.resolveWithRetry(ctx, r.topicEndpoint, topicName,
		"topic", topicQueueNameKey, http.MethodGet)
	if !ok {
		queueName = fallbackQueueName(topicName)
	}

	r.topicCache[key] = queueName
	return queueName
}

// ClearCache drops every cached resolution.
func (r *EndpointResolver) ClearCache() {
	r.functionCache = map[string]string{}
	r.topicCache = map[string]string{}
}

// lookupResult carries the outcome of a single endpoint call.
type lookupResult struct {
	queueName string
	retryable bool
}

func (r *EndpointResolver) resolveWithRetry(ctx context.Context, endpoint *url.URL,
	targetName, targetType, queueNameKey, method string) (string, bool) {

	if endpoint == nil {
		r.logger.Debug("No queue resolver endpoint configured", map[string]interface{}{
			"target_type": targetType,
			"target":      targetName,
		})
		return "", false
	}

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		result := r.callEndpoint(ctx, endpoint, targetName, targetType, queueNameKey, method)
		if result.queueName != "" {
			return result.queueName, true
		}

		if !result.retryable || attempt == r.maxAttempts {
			break
		}
		if !r.sleepBeforeRetry(ctx, targetType, targetName, attempt) {
			break
		}
	}

	return "", false
}

func (r *EndpointResolver) callEndpoint(ctx context.Context, endpoint *url.URL,
	targetName, targetType, queueNameKey, method string) lookupResult {

	requestURL := buildRequestURL(endpoint, targetName)

	req, err := http.NewRequestWithContext(ctx, method, requestURL, nil)
	if err != nil {
		r.logger.Warn("Failed to build queue resolver request", map[string]interface{}{
			"target_type": targetType,
			"target":      targetName,
			"error":       err.Error(),
		})
		return lookupResult{}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		// Cancellation is final; transport errors are worth another attempt.
		if ctx.Err() != nil {
			return lookupResult{}
		}
		r.logger.Warn("Queue resolver request failed", map[string]interface{}{
			"target_type": targetType,
			"target":      targetName,
			"error":       err.Error(),
		})
		return lookupResult{retryable: true}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctx.Err() != nil {
			return lookupResult{}
		}
		return lookupResult{retryable: true}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		queueName := parseQueueName(body, queueNameKey)
		if queueName == "" {
			r.logger.Warn("Queue resolver response missing queue name", map[string]interface{}{
				"target_type": targetType,
				"target":      targetName,
				"key":         queueNameKey,
			})
			return lookupResult{}
		}
		return lookupResult{queueName: normalizeQueueName(queueName)}

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		r.logger.Warn("Transient queue resolver status", map[string]interface{}{
			"target_type": targetType,
			"target":      targetName,
			"status":      resp.StatusCode,
		})
		return lookupResult{retryable: true}

	default:
		r.logger.Warn("Non-retryable queue resolver status", map[string]interface{}{
			"target_type": targetType,
			"target":      targetName,
			"status":      resp.StatusCode,
		})
		return lookupResult{}
	}
}

// buildRequestURL appends the lower-cased, path-escaped target name to the
// endpoint path.
func buildRequestURL(endpoint *url.URL, targetName string) string {
	return endpoint.JoinPath(strings.ToLower(targetName)).String()
}

// sleepBeforeRetry waits initialBackoff * 2^(attempt-1) plus up to 50ms of
// jitter. Returns false when the context is cancelled during the wait.
func (r *EndpointResolver) sleepBeforeRetry(ctx context.Context, targetType, targetName string, attempt int) bool {
	delay := r.initialBackoff * time.Duration(1<<uint(attempt-1))
	delay += time.Duration(rand.Int63n(int64(maxJitter)))

	r.logger.Debug("Retrying queue resolver", map[string]interface{}{
		"target_type": targetType,
		"target":      targetName,
		"delay_ms":    delay.Milliseconds(),
		"attempt":     attempt + 1,
		"max":         r.maxAttempts,
	})

	select {
	case <-ctx.Done():
		return false
	case <-time.After(delay):
		return true
	}
}

func parseQueueName(body []byte, queueNameKey string) string {
	if len(body) == 0 {
		return ""
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	raw, ok := payload[queueNameKey]
	if !ok {
		return ""
	}
	var queueName string
	if err := json.Unmarshal(raw, &queueName); err != nil {
		return ""
	}
	return strings.TrimSpace(queueName)
}
