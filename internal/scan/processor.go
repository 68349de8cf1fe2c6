package scan

import (
	"codesnap/internal/errors"
	"codesnap/internal/logging"
)

// Invocation types reported by the scanner for function calls.
const (
	invocationTypeExecute      = "execute"
	invocationTypeExecuteAsync = "executeAsync"
)

// UnknownTopicPlaceholder substitutes for any topic whose name the scanner
// could not resolve. The invocation still matters for ownership and must stay
// visible in the assembled tree.
const UnknownTopicPlaceholder = "<unknown-topic>"

// Processor transforms a RawScan into a ProcessedScan:
//
//   - builds reverse lookup maps for method resolution,
//   - attributes every invocation to its owning entry points via call chains,
//   - pre-computes entryPointChildren for direct dependency lookup,
//   - builds publicMethodDependencies for transitive resolution.
type Processor struct {
	logger *logging.Logger

	// knownResolutions is the recognized topicResolution vocabulary; values
	// outside it are logged but still treated as unresolved.
	knownResolutions map[TopicResolution]bool
}

// NewProcessor creates a processor. knownResolutions may be nil, in which
// case the scanner's standard vocabulary is assumed.
func NewProcessor(logger *logging.Logger, knownResolutions []string) *Processor {
	known := map[TopicResolution]bool{}
	if len(knownResolutions) == 0 {
		known[ResolutionResolved] = true
		known[ResolutionUnknownVariable] = true
		known[ResolutionUnknownConstant] = true
	} else {
		for _, r := range knownResolutions {
			known[TopicResolution(r)] = true
		}
	}
	return &Processor{logger: logger, knownResolutions: known}
}

// Process transforms one raw scan. The input is not modified. Empty and nil
// collections are tolerated; only a nil scan is an error.
func (p *Processor) Process(raw *RawScan) (*ProcessedScan, error) {
	if raw == nil {
		return nil, errors.New(errors.InvalidInput, "raw scan is required")
	}

	p.logger.Info("Processing scan data", map[string]interface{}{
		"service": raw.ArtifactID,
	})

	ps := NewProcessedScan()
	copyMappings(raw, ps)

	implToInterface := buildImplToInterface(raw)
	interfaceToEntryPoint := buildInterfaceToEntryPoint(raw)

	// Every exposed entry point gets a (possibly empty) dependency set.
	for name := range ps.FunctionMappings {
		ps.EntryPointChildren[name] = NewDependencies()
	}
	for name := range ps.UIServiceMethodMappings {
		ps.EntryPointChildren[name] = NewDependencies()
	}

	p.processFunctionUsages(raw, ps, implToInterface, interfaceToEntryPoint)
	p.processServiceUsages(raw, ps, implToInterface, interfaceToEntryPoint)
	p.processEventPublisherInvocations(raw, ps, implToInterface, interfaceToEntryPoint)

	p.logger.Info("Completed processing scan data", map[string]interface{}{
		"service":      raw.ArtifactID,
		"entry_points": len(ps.EntryPointChildren),
		"public_deps":  len(ps.PublicMethodDependencies),
	})

	return ps, nil
}

func copyMappings(raw *RawScan, ps *ProcessedScan) {
	for k, v := range raw.FunctionMappings {
		ps.FunctionMappings[k] = v
	}
	for k, v := range raw.UIServiceMethodMappings {
		ps.UIServiceMethodMappings[k] = v
	}
	for k, v := range raw.MethodImplementationMapping {
		ps.MethodImplementationMapping[k] = v
	}
}

// buildImplToInterface reverses the methodImplementationMapping:
// implementation signature -> interface signature.
func buildImplToInterface(raw *RawScan) map[string]string {
	m := make(map[string]string, len(raw.MethodImplementationMapping))
	for interfaceMethod, implMethod := range raw.MethodImplementationMapping {
		m[implMethod] = interfaceMethod
	}
	return m
}

// buildInterfaceToEntryPoint combines function and UI method mappings into
// one reverse index: interface signature -> entry-point short name.
func buildInterfaceToEntryPoint(raw *RawScan) map[string]string {
	m := make(map[string]string, len(raw.FunctionMappings)+len(raw.UIServiceMethodMappings))
	for entryPoint, interfaceMethod := range raw.FunctionMappings {
		m[interfaceMethod] = entryPoint
	}
	for entryPoint, interfaceMethod := range raw.UIServiceMethodMappings {
		m[interfaceMethod] = entryPoint
	}
	return m
}

func (p *Processor) processFunctionUsages(raw *RawScan, ps *ProcessedScan,
	implToInterface, interfaceToEntryPoint map[string]string) {

	for _, usage := range raw.FunctionUsages {
		for _, inv := range usage.Invocations {
			if len(inv.CallChain) == 0 {
				p.logger.Warn("Function usage has empty call chain", map[string]interface{}{
					"function": usage.FunctionName,
					"location": inv.LocationInCode,
				})
				continue
			}

			isAsync := inv.InvocationType == invocationTypeExecuteAsync

			for _, owner := range findOwners(inv.CallChain, implToInterface, interfaceToEntryPoint) {
				deps := ps.EntryPointChildren[owner]
				if deps == nil {
					continue
				}
				if isAsync {
					deps.AddAsyncFunction(usage.FunctionName)
				} else {
					deps.AddFunction(usage.FunctionName)
				}
			}

			for _, ref := range inv.CallChain {
				if !ref.IsPublic() {
					continue
				}
				deps := publicDeps(ps, ref.MethodSignature)
				if isAsync {
					deps.AddAsyncFunction(usage.FunctionName)
				} else {
					deps.AddFunction(usage.FunctionName)
				}
			}
		}
	}
}

func (p *Processor) processServiceUsages(raw *RawScan, ps *ProcessedScan,
	implToInterface, interfaceToEntryPoint map[string]string) {

	for _, usage := range raw.ServiceUsages {
		for _, inv := range usage.Invocations {
			if len(inv.CallChain) == 0 {
				p.logger.Warn("Service usage has empty call chain", map[string]interface{}{
					"target_service": usage.ServiceID,
					"target_method":  inv.TargetInterfaceMethod,
					"location":       inv.LocationInCode,
				})
				continue
			}

			for _, owner := range findOwners(inv.CallChain, implToInterface, interfaceToEntryPoint) {
				if deps := ps.EntryPointChildren[owner]; deps != nil {
					deps.AddServiceCall(usage.ServiceID, inv.TargetInterfaceMethod)
				}
			}

			for _, ref := range inv.CallChain {
				if ref.IsPublic() {
					publicDeps(ps, ref.MethodSignature).
						AddServiceCall(usage.ServiceID, inv.TargetInterfaceMethod)
				}
			}
		}
	}
}

func (p *Processor) processEventPublisherInvocations(raw *RawScan, ps *ProcessedScan,
	implToInterface, interfaceToEntryPoint map[string]string) {

	for _, inv := range raw.EventPublisherInvocations {
		topic := inv.TopicName
		if inv.TopicResolution != ResolutionResolved {
			if !p.knownResolutions[inv.TopicResolution] {
				p.logger.Warn("Unrecognized topic resolution", map[string]interface{}{
					"resolution": string(inv.TopicResolution),
					"location":   inv.LocationInCode,
				})
			}
			topic = UnknownTopicPlaceholder
		}

		if len(inv.CallChain) == 0 {
			p.logger.Warn("Event publisher invocation has empty call chain", map[string]interface{}{
				"topic":    topic,
				"location": inv.LocationInCode,
			})
			continue
		}

		for _, owner := range findOwners(inv.CallChain, implToInterface, interfaceToEntryPoint) {
			if deps := ps.EntryPointChildren[owner]; deps != nil {
				deps.AddTopic(topic)
			}
		}

		for _, ref := range inv.CallChain {
			if ref.IsPublic() {
				publicDeps(ps, ref.MethodSignature).AddTopic(topic)
			}
		}
	}
}

// findOwners resolves a call chain to the entry points that transitively
// enclose the invocation: impl signature -> interface signature -> entry
// point. Elements failing either lookup contribute nothing.
func findOwners(callChain []MethodReference,
	implToInterface, interfaceToEntryPoint map[string]string) []string {

	var owners []string
	seen := map[string]bool{}
	for _, ref := range callChain {
		interfaceMethod, ok := implToInterface[ref.MethodSignature]
		if !ok {
			continue
		}
		entryPoint, ok := interfaceToEntryPoint[interfaceMethod]
		if !ok || seen[entryPoint] {
			continue
		}
		seen[entryPoint] = true
		owners = append(owners, entryPoint)
	}
	return owners
}

func publicDeps(ps *ProcessedScan, implMethod string) *Dependencies {
	deps, ok := ps.PublicMethodDependencies[implMethod]
	if !ok {
		deps = NewDependencies()
		ps.PublicMethodDependencies[implMethod] = deps
	}
	return deps
}
