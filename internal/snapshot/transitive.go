package snapshot

import (
	"context"

	"codesnap/internal/logging"
	"codesnap/internal/queue"
	"codesnap/internal/scan"
)

// TransitiveResolver expands cross-service calls into their ultimate leaf
// dependencies. When a function calls another service's interface method, the
// resolver follows the callee's public-method dependency table, and keeps
// following nested service calls until only leaves remain.
//
// The lookup index is built once per build from the loaded scans and is
// read-only afterwards.
type TransitiveResolver struct {
	queueResolver queue.Resolver
	logger        *logging.Logger

	// index: serviceId -> interfaceMethod -> dependencies. Built by rekeying
	// each scan's publicMethodDependencies from implementation signatures to
	// interface signatures.
	index map[string]map[string]*scan.Dependencies
}

// NewTransitiveResolver builds the resolution index over the loaded scans.
func NewTransitiveResolver(scans map[string]*scan.StoredScan,
	queueResolver queue.Resolver, logger *logging.Logger) *TransitiveResolver {

	index := map[string]map[string]*scan.Dependencies{}

	for serviceID, stored := range scans {
		data := stored.Data
		if data == nil || len(data.MethodImplementationMapping) == 0 ||
			len(data.PublicMethodDependencies) == 0 {
			continue
		}

		methods := map[string]*scan.Dependencies{}
		for interfaceMethod, implMethod := range data.MethodImplementationMapping {
			deps := data.PublicMethodDependencies[implMethod]
			if deps != nil && !deps.IsEmpty() {
				methods[interfaceMethod] = deps
			}
		}

		if len(methods) > 0 {
			index[serviceID] = methods
		}
	}

	logger.Debug("Built transitive resolution index", map[string]interface{}{
		"services": len(index),
	})

	return &TransitiveResolver{
		queueResolver: queueResolver,
		logger:        logger,
		index:         index,
	}
}

// ResolveServiceCalls expands every call in order, adding the reachable
// leaves to the target entry.
func (r *TransitiveResolver) ResolveServiceCalls(ctx context.Context,
	calls []scan.ServiceCall, target *FunctionPoolEntry) {

	for _, call := range calls {
		r.ResolveServiceCall(ctx, call, target)
	}
}

// ResolveServiceCall expands one call, adding the reachable leaves to the
// target entry.
func (r *TransitiveResolver) ResolveServiceCall(ctx context.Context,
	call scan.ServiceCall, target *FunctionPoolEntry) {

	r.resolve(ctx, call.ServiceID, call.InterfaceMethod, target, map[string]bool{})
}

// HasResolutionData reports whether any public-method dependencies are
// indexed for the service.
func (r *TransitiveResolver) HasResolutionData(serviceID string) bool {
	return len(r.index[serviceID]) > 0
}

func (r *TransitiveResolver) resolve(ctx context.Context, serviceID, interfaceMethod string,
	target *FunctionPoolEntry, visited map[string]bool) {

	visitKey := serviceID + "::" + interfaceMethod
	if visited[visitKey] {
		r.logger.Warn("Cycle detected in transitive resolution", map[string]interface{}{
			"at": visitKey,
		})
		return
	}
	visited[visitKey] = true

	serviceMethods, ok := r.index[serviceID]
	if !ok {
		// The callee's scan isn't part of this build; the call dangles.
		r.logger.Debug("No transitive resolution data for service", map[string]interface{}{
			"service": serviceID,
		})
		return
	}

	deps, ok := serviceMethods[interfaceMethod]
	if !ok {
		r.logger.Debug("No dependencies found for interface method", map[string]interface{}{
			"service": serviceID,
			"method":  interfaceMethod,
		})
		return
	}

	for _, name := range deps.Functions {
		if !target.ContainsSyncRef(name) {
			target.AddSyncRef(name)
		}
	}

	for _, name := range deps.AsyncFunctions {
		if !target.ContainsAsyncRef(name) {
			target.AddAsyncRef(name, r.queueResolver.ResolveForFunction(ctx, name))
		}
	}

	for _, topic := range deps.Topics {
		if !target.ContainsTopicRef(topic) {
			target.AddTopicRef(topic, r.queueResolver.ResolveForTopic(ctx, topic))
		}
	}

	for _, nested := range deps.ServiceCalls {
		r.resolve(ctx, nested.ServiceID, nested.InterfaceMethod, target, visited)
	}
}
