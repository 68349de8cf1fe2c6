package snapshot

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"codesnap/internal/logging"
	"codesnap/internal/queue"
	"codesnap/internal/scan"
	"codesnap/internal/storage"
)

// Assembler drives one snapshot build:
//
//  1. filter out services with recorded scan failures,
//  2. load the remaining processed scans,
//  3. order services by their declared dependencies,
//  4. walk each service's entry points, attaching direct dependencies and
//     expanding cross-service calls transitively,
//  5. emit the app template plus the function pool.
//
// One Assembler may serve many builds, but each Build call keeps its own
// transitive index and starts from a cleared queue-resolver cache.
type Assembler struct {
	scans         *scan.Service
	queueResolver queue.Resolver
	logger        *logging.Logger
}

// NewAssembler wires an assembler over the scan service and queue resolver.
func NewAssembler(scans *scan.Service, queueResolver queue.Resolver, logger *logging.Logger) *Assembler {
	return &Assembler{
		scans:         scans,
		queueResolver: queueResolver,
		logger:        logger,
	}
}

// Build assembles the snapshot for a request.
//
// Recorded scan failures are survivable: the failed services are reported on
// the snapshot and the build continues with the rest. Invalid requests,
// missing scans and dependency cycles are fatal and produce no snapshot.
func (a *Assembler) Build(ctx context.Context, request *BuildRequest) (*Snapshot, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	a.logger.Info("Starting build", map[string]interface{}{
		"app":      request.AppName,
		"services": len(request.Services),
	})

	// Lookups must reflect the mappings as of this build.
	a.queueResolver.ClearCache()

	pairs := request.Pairs()

	failures, err := a.scans.FindFailedScans(pairs)
	if err != nil {
		return nil, err
	}

	result := NewSnapshot()

	failedIDs := map[string]bool{}
	for _, failure := range failures {
		failedIDs[failure.ServiceID] = true
		result.AddFailedService(FailedService{
			ServiceID:     failure.ServiceID,
			GitCommitHash: failure.GitCommitHash,
			ErrorType:     failure.ErrorType,
			ErrorMessage:  failure.ErrorMessage,
		})
		result.AddWarning(fmt.Sprintf("service %s@%s has a failed scan: %s",
			failure.ServiceID, failure.GitCommitHash, failure.ErrorMessage))
	}
	if len(failures) > 0 {
		a.logger.Warn("Found failed scans among requested services", map[string]interface{}{
			"failed": len(failures),
		})
	}

	validPairs := make([]storage.ServiceCommit, 0, len(pairs))
	for _, pair := range pairs {
		if !failedIDs[pair.ServiceID] {
			validPairs = append(validPairs, pair)
		}
	}

	scans := map[string]*scan.StoredScan{}
	if len(validPairs) == 0 {
		a.logger.Warn("All requested services have failed scans", nil)
	} else {
		scans, err = a.scans.LoadScansForBuild(validPairs)
		if err != nil {
			return nil, err
		}
	}

	seed := make([]string, 0, len(validPairs))
	for _, pair := range validPairs {
		seed = append(seed, pair.ServiceID)
	}

	sorted, err := topologicalOrder(seed, scans)
	if err != nil {
		return nil, err
	}
	a.logger.Info("Services sorted by dependencies", map[string]interface{}{
		"order": strings.Join(sorted, ", "),
	})

	transitive := NewTransitiveResolver(scans, a.queueResolver, a.logger)

	root := App(request.AppName)

	// Function refs are added to the root once per name, case-insensitively.
	addedFunctions := map[string]bool{}

	for _, serviceID := range sorted {
		stored := scans[serviceID]
		if stored.IsUIService {
			a.processUIService(ctx, serviceID, stored.Data, root, transitive)
		} else {
			a.processRegularService(ctx, serviceID, stored.Data, root, result,
				transitive, addedFunctions, request.AppName)
		}
	}

	result.AppTemplate = root

	if result.IsComplete {
		a.logger.Info("Build completed", map[string]interface{}{
			"app":         request.AppName,
			"functions":   len(result.FunctionPool),
			"ui_services": countUIServices(root),
		})
	} else {
		a.logger.Warn("Build completed with failed services", map[string]interface{}{
			"app":         request.AppName,
			"functions":   len(result.FunctionPool),
			"ui_services": countUIServices(root),
			"failed":      len(result.FailedServices),
		})
	}

	return result, nil
}

// processRegularService adds the service's functions to the pool and the app
// template root.
func (a *Assembler) processRegularService(ctx context.Context, serviceID string,
	data *scan.ProcessedScan, root *TemplateNode, result *Snapshot,
	transitive *TransitiveResolver, addedFunctions map[string]bool, appName string) {

	if len(data.FunctionMappings) == 0 {
		a.logger.Debug("Service has no function mappings (dependency-only service)",
			map[string]interface{}{"service": serviceID})
		return
	}

	for _, functionName := range sortedKeys(data.FunctionMappings) {
		entry := result.GetOrCreateFunction(functionName, appName)

		if deps := data.EntryPointChildren[functionName]; deps != nil {
			a.addDependenciesToPoolEntry(ctx, deps, entry, transitive)
		}

		lower := strings.ToLower(functionName)
		if !addedFunctions[lower] {
			root.AddFunctionRef(functionName)
			addedFunctions[lower] = true
		}
	}

	a.logger.Debug("Processed regular service", map[string]interface{}{
		"service":   serviceID,
		"functions": len(data.FunctionMappings),
	})
}

// processUIService adds a ui-services container with one node per UI method.
// Transitive leaves of a UI method land in the template under the method
// node, not in the pool.
func (a *Assembler) processUIService(ctx context.Context, serviceID string,
	data *scan.ProcessedScan, root *TemplateNode, transitive *TransitiveResolver) {

	if len(data.UIServiceMethodMappings) == 0 {
		a.logger.Debug("UI service has no method mappings", map[string]interface{}{
			"service": serviceID,
		})
		return
	}

	container := UIServices(serviceID)

	for _, methodName := range sortedKeys(data.UIServiceMethodMappings) {
		methodNode := UIServiceMethod(methodName)

		if deps := data.EntryPointChildren[methodName]; deps != nil {
			a.addDependenciesToMethodNode(ctx, deps, methodNode, transitive)
		}

		container.AddChild(methodNode)
	}

	root.AddChild(container)

	a.logger.Debug("Processed UI service", map[string]interface{}{
		"service": serviceID,
		"methods": len(data.UIServiceMethodMappings),
	})
}

// addDependenciesToPoolEntry attaches direct dependencies and then expands
// service calls into the same entry.
func (a *Assembler) addDependenciesToPoolEntry(ctx context.Context,
	deps *scan.Dependencies, entry *FunctionPoolEntry, transitive *TransitiveResolver) {

	for _, name := range deps.Functions {
		if !entry.ContainsSyncRef(name) {
			entry.AddSyncRef(name)
		}
	}

	for _, name := range deps.AsyncFunctions {
		if !entry.ContainsAsyncRef(name) {
			entry.AddAsyncRef(name, a.queueResolver.ResolveForFunction(ctx, name))
		}
	}

	for _, topic := range deps.Topics {
		if !entry.ContainsTopicRef(topic) {
			entry.AddTopicRef(topic, a.queueResolver.ResolveForTopic(ctx, topic))
		}
	}

	if len(deps.ServiceCalls) > 0 {
		transitive.ResolveServiceCalls(ctx, deps.ServiceCalls, entry)
	}
}

// addDependenciesToMethodNode attaches a UI method's dependencies as template
// children. Service calls are expanded into a temporary collector whose
// accumulated refs are translated back into template nodes.
func (a *Assembler) addDependenciesToMethodNode(ctx context.Context,
	deps *scan.Dependencies, methodNode *TemplateNode, transitive *TransitiveResolver) {

	for _, name := range deps.Functions {
		methodNode.AddFunctionRef(name)
	}

	for _, name := range deps.AsyncFunctions {
		methodNode.AddAsyncFunctionRef(name, a.queueResolver.ResolveForFunction(ctx, name))
	}

	for _, topic := range deps.Topics {
		methodNode.AddTopicPublishRef(topic, a.queueResolver.ResolveForTopic(ctx, topic))
	}

	if len(deps.ServiceCalls) == 0 {
		return
	}

	collector := &FunctionPoolEntry{}
	transitive.ResolveServiceCalls(ctx, deps.ServiceCalls, collector)

	for _, child := range collector.Children {
		switch {
		case child.IsSyncRef():
			methodNode.AddFunctionRef(child.Ref)
		case child.IsAsyncRef():
			methodNode.AddAsyncFunctionRef(child.Ref, child.QueueName)
		case child.IsTopicRef():
			methodNode.AddTopicPublishRef(child.TopicName, child.QueueName)
		}
	}
}

func countUIServices(root *TemplateNode) int {
	n := 0
	for _, child := range root.Children {
		if child.Type == TypeUIServices {
			n++
		}
	}
	return n
}

// sortedKeys returns the map keys in sorted order; entry points are walked in
// a stable order so repeated builds emit identical snapshots.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
