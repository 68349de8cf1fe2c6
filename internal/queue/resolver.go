// Package queue resolves async-function and topic names to queue identifiers.
//
// Two resolver variants exist: EndpointResolver asks the queue registry's
// REST endpoints, StoreResolver reads the local queue_mapping table. Both
// share the same contract: resolution never fails at the callsite and always
// yields a non-empty queue name, falling back to "<name>_queue".
package queue

import (
	"context"
	"strings"
)

// DefaultQueueSuffix is appended to the target name when no mapping resolves.
const DefaultQueueSuffix = "_queue"

// queuePrefixToStrip is removed (case-insensitively) from resolved queue
// names; the registry exposes names with a deployment-environment prefix that
// downstream tooling does not expect.
const queuePrefixToStrip = "OCP.DEV."

// Resolver maps async-function and topic names to queue names.
type Resolver interface {
	// ResolveForFunction returns the queue serving an async function call.
	ResolveForFunction(ctx context.Context, functionName string) string
	// ResolveForTopic returns the queue serving a topic publish.
	ResolveForTopic(ctx context.Context, topicName string) string
	// ClearCache drops all cached resolutions. Called at the start of every
	// build so one build never observes another's lookups.
	ClearCache()
}

// Preload warms the resolver cache for a batch of targets.
func Preload(ctx context.Context, r Resolver, functionNames, topicNames []string) {
	for _, name := range functionNames {
		r.ResolveForFunction(ctx, name)
	}
	for _, name := range topicNames {
		r.ResolveForTopic(ctx, name)
	}
}

// fallbackQueueName generates the default queue name for an unresolved target.
func fallbackQueueName(targetName string) string {
	return targetName + DefaultQueueSuffix
}

// normalizeQueueName trims the resolved name and strips the deployment prefix.
func normalizeQueueName(queueName string) string {
	name := strings.TrimSpace(queueName)
	if len(name) >= len(queuePrefixToStrip) &&
		strings.EqualFold(name[:len(queuePrefixToStrip)], queuePrefixToStrip) {
		name = name[len(queuePrefixToStrip):]
	}
	return name
}

// cacheKey lower-cases target names; the registry is case-insensitive.
func cacheKey(targetName string) string {
	return strings.ToLower(targetName)
}
