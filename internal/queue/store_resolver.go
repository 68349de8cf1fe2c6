package queue

import (
	"context"

	"codesnap/internal/logging"
	"codesnap/internal/storage"
)

// StoreResolver resolves queue names from the queue_mapping table instead of
// the registry endpoints. Lookup failures of any kind resolve to the
// fallback; the resolver never errors at the callsite.
type StoreResolver struct {
	mappings *storage.QueueMappingStore
	logger   *logging.Logger

	functionCache map[string]string
	topicCache    map[string]string
}

// NewStoreResolver creates a resolver over the queue-mapping store.
func NewStoreResolver(mappings *storage.QueueMappingStore, logger *logging.Logger) *StoreResolver {
	return &StoreResolver{
		mappings:      mappings,
		logger:        logger,
		functionCache: map[string]string{},
		topicCache:    map[string]string{},
	}
}

// ResolveForFunction resolves the queue name for an async function call.
func (r *StoreResolver) ResolveForFunction(_ context.Context, functionName string) string {
	return r.resolve(functionName, storage.TargetTypeFunction, r.functionCache)
}

// ResolveForTopic resolves the queue name for a topic publish.
func (r *StoreResolver) ResolveForTopic(_ context.Context, topicName string) string {
	return r.resolve(topicName, storage.TargetTypeTopic, r.topicCache)
}

// ClearCache drops every cached resolution.
func (r *StoreResolver) ClearCache() {
	r.functionCache = map[string]string{}
	r.topicCache = map[string]string{}
}

func (r *StoreResolver) resolve(targetName, targetType string, cache map[string]string) string {
	key := cacheKey(targetName)
	if queueName, ok := cache[key]; ok {
		return queueName
	}

	queueName, err := r.mappings.FindQueueNameByTarget(targetType, targetName)
	if err != nil {
		r.logger.Warn("Queue mapping lookup failed", map[string]interface{}{
			"target_type": targetType,
			"target":      targetName,
			"error":       err.Error(),
		})
		queueName = ""
	}

	if queueName == "" {
		queueName = fallbackQueueName(targetName)
	} else {
		queueName = normalizeQueueName(queueName)
	}

	cache[key] = queueName
	return queueName
}
