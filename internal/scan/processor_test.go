package scan

import (
	"reflect"
	"testing"

	"codesnap/internal/errors"
	"codesnap/internal/logging"
)

func newTestProcessor() *Processor {
	return NewProcessor(logging.Nop(), nil)
}

// chain builds a call chain out of (signature, modifier) pairs.
func chain(refs ...MethodReference) []MethodReference {
	return refs
}

func public(signature string) MethodReference {
	return MethodReference{MethodSignature: signature, AccessModifier: AccessPublic}
}

func private(signature string) MethodReference {
	return MethodReference{MethodSignature: signature, AccessModifier: AccessPrivate}
}

func TestProcessNilScanFails(t *testing.T) {
	_, err := newTestProcessor().Process(nil)
	if err == nil {
		t.Fatal("Expected an error for nil scan")
	}
	if !errors.IsCode(err, errors.InvalidInput) {
		t.Errorf("Expected INVALID_INPUT, got %v", err)
	}
}

func TestProcessEmptyScan(t *testing.T) {
	ps, err := newTestProcessor().Process(&RawScan{ArtifactID: "empty-service"})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if len(ps.EntryPointChildren) != 0 {
		t.Errorf("Expected no entry points, got %d", len(ps.EntryPointChildren))
	}
	if len(ps.PublicMethodDependencies) != 0 {
		t.Errorf("Expected no public method deps, got %d", len(ps.PublicMethodDependencies))
	}
}

func TestProcessCopiesMappings(t *testing.T) {
	raw := &RawScan{
		ArtifactID:                  "svc",
		FunctionMappings:            map[string]string{"getWages": "IWage.getWages(int)"},
		UIServiceMethodMappings:     map[string]string{"showWages": "IUi.showWages()"},
		MethodImplementationMapping: map[string]string{"IWage.getWages(int)": "WageImpl.getWages(int)"},
	}

	ps, err := newTestProcessor().Process(raw)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if ps.FunctionMappings["getWages"] != "IWage.getWages(int)" {
		t.Error("Function mappings not copied")
	}
	if ps.UIServiceMethodMappings["showWages"] != "IUi.showWages()" {
		t.Error("UI method mappings not copied")
	}
	if ps.MethodImplementationMapping["IWage.getWages(int)"] != "WageImpl.getWages(int)" {
		t.Error("Method implementation mapping not copied")
	}

	// Every entry point starts with an (empty) dependency set.
	for _, name := range []string{"getWages", "showWages"} {
		deps, ok := ps.EntryPointChildren[name]
		if !ok {
			t.Fatalf("Missing entry point children for %s", name)
		}
		if !deps.IsEmpty() {
			t.Errorf("Expected empty deps for %s", name)
		}
	}
}

func TestProcessAttributesFunctionInvocationToOwner(t *testing.T) {
	raw := &RawScan{
		ArtifactID:                  "svc",
		FunctionMappings:            map[string]string{"insertEmployee": "IEmp.insert(Employee)"},
		MethodImplementationMapping: map[string]string{"IEmp.insert(Employee)": "EmpImpl.insert(Employee)"},
		FunctionUsages: []FunctionUsage{{
			FunctionName: "validateSSN",
			Invocations: []FunctionInvocation{
				{
					InvocationType: "execute",
					CallChain: chain(
						private("EmpImpl.validate(Employee)"),
						public("EmpImpl.insert(Employee)"),
					),
				},
				{
					InvocationType: "executeAsync",
					CallChain:      chain(public("EmpImpl.insert(Employee)")),
				},
			},
		}},
	}

	ps, err := newTestProcessor().Process(raw)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	deps := ps.EntryPointChildren["insertEmployee"]
	if !reflect.DeepEqual(deps.Functions, []string{"validateSSN"}) {
		t.Errorf("Expected sync function validateSSN, got %v", deps.Functions)
	}
	if !reflect.DeepEqual(deps.AsyncFunctions, []string{"validateSSN"}) {
		t.Errorf("Expected async function validateSSN, got %v", deps.AsyncFunctions)
	}

	// The PUBLIC chain element gets the same dependency under its impl
	// signature; the private element does not.
	pubDeps := ps.PublicMethodDependencies["EmpImpl.insert(Employee)"]
	if pubDeps == nil {
		t.Fatal("Expected public method dependencies for EmpImpl.insert")
	}
	if !reflect.DeepEqual(pubDeps.Functions, []string{"validateSSN"}) {
		t.Errorf("Expected public deps sync function, got %v", pubDeps.Functions)
	}
	if _, ok := ps.PublicMethodDependencies["EmpImpl.validate(Employee)"]; ok {
		t.Error("Private chain element must not appear in publicMethodDependencies")
	}
}

func TestProcessOwnerRequiresBothLookups(t *testing.T) {
	// The chain element resolves to an interface method that is not exposed
	// as an entry point, so no owner is found; the PUBLIC element still
	// lands in publicMethodDependencies.
	raw := &RawScan{
		ArtifactID:                  "svc",
		FunctionMappings:            map[string]string{"doWork": "ISvc.doWork()"},
		MethodImplementationMapping: map[string]string{"ISvc.internal()": "SvcImpl.internal()"},
		FunctionUsages: []FunctionUsage{{
			FunctionName: "leaf",
			Invocations: []FunctionInvocation{{
				InvocationType: "execute",
				CallChain:      chain(public("SvcImpl.internal()")),
			}},
		}},
	}

	ps, err := newTestProcessor().Process(raw)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if !ps.EntryPointChildren["doWork"].IsEmpty() {
		t.Error("Entry point must not own an invocation it does not enclose")
	}
	if ps.PublicMethodDependencies["SvcImpl.internal()"] == nil {
		t.Error("PUBLIC chain element missing from publicMethodDependencies")
	}
}

func TestProcessSkipsEmptyCallChains(t *testing.T) {
	raw := &RawScan{
		ArtifactID:                  "svc",
		FunctionMappings:            map[string]string{"f": "I.f()"},
		MethodImplementationMapping: map[string]string{"I.f()": "Impl.f()"},
		FunctionUsages: []FunctionUsage{{
			FunctionName: "g",
			Invocations: []FunctionInvocation{
				{InvocationType: "execute"}, // no call chain
			},
		}},
		ServiceUsages: []ServiceUsage{{
			ServiceID: "other",
			Invocations: []ServiceInvocation{
				{TargetInterfaceMethod: "IOther.m()"}, // no call chain
			},
		}},
		EventPublisherInvocations: []EventPublisherInvocation{
			{TopicName: "T", TopicResolution: ResolutionResolved}, // no call chain
		},
	}

	ps, err := newTestProcessor().Process(raw)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !ps.EntryPointChildren["f"].IsEmpty() {
		t.Error("Invocations with empty call chains must be skipped")
	}
	if len(ps.PublicMethodDependencies) != 0 {
		t.Error("Empty call chains must not create public method dependencies")
	}
}

func TestProcessServiceCallsDeduplicated(t *testing.T) {
	inv := ServiceInvocation{
		TargetInterfaceMethod: "IWage.getWageCount(int)",
		CallChain:             chain(public("EmpImpl.insert(Employee)")),
	}
	raw := &RawScan{
		ArtifactID:                  "svc",
		FunctionMappings:            map[string]string{"insertEmployee": "IEmp.insert(Employee)"},
		MethodImplementationMapping: map[string]string{"IEmp.insert(Employee)": "EmpImpl.insert(Employee)"},
		ServiceUsages: []ServiceUsage{{
			ServiceID:   "wage-service",
			Invocations: []ServiceInvocation{inv, inv},
		}},
	}

	ps, err := newTestProcessor().Process(raw)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	want := []ServiceCall{{ServiceID: "wage-service", InterfaceMethod: "IWage.getWageCount(int)"}}
	got := ps.EntryPointChildren["insertEmployee"].ServiceCalls
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected deduplicated service calls %v, got %v", want, got)
	}
	pubGot := ps.PublicMethodDependencies["EmpImpl.insert(Employee)"].ServiceCalls
	if !reflect.DeepEqual(pubGot, want) {
		t.Errorf("Expected deduplicated public service calls %v, got %v", want, pubGot)
	}
}

func TestProcessTopicResolution(t *testing.T) {
	tests := []struct {
		name       string
		resolution TopicResolution
		topicName  string
		want       string
	}{
		{"resolved", ResolutionResolved, "PaymentPosting", "PaymentPosting"},
		{"unknown variable", ResolutionUnknownVariable, "ignored", UnknownTopicPlaceholder},
		{"unknown constant", ResolutionUnknownConstant, "", UnknownTopicPlaceholder},
		{"unrecognized value", TopicResolution("UNKNOWN_COMPLEX"), "x", UnknownTopicPlaceholder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := &RawScan{
				ArtifactID:                  "svc",
				FunctionMappings:            map[string]string{"f": "I.f()"},
				MethodImplementationMapping: map[string]string{"I.f()": "Impl.f()"},
				EventPublisherInvocations: []EventPublisherInvocation{{
					TopicName:       tt.topicName,
					TopicResolution: tt.resolution,
					CallChain:       chain(public("Impl.f()")),
				}},
			}

			ps, err := newTestProcessor().Process(raw)
			if err != nil {
				t.Fatalf("Process failed: %v", err)
			}

			got := ps.EntryPointChildren["f"].Topics
			if !reflect.DeepEqual(got, []string{tt.want}) {
				t.Errorf("Expected topics [%s], got %v", tt.want, got)
			}
			pubGot := ps.PublicMethodDependencies["Impl.f()"].Topics
			if !reflect.DeepEqual(pubGot, []string{tt.want}) {
				t.Errorf("Expected public topics [%s], got %v", tt.want, pubGot)
			}
		})
	}
}

func TestProcessUnknownTopicAppearsOncePerEntryPoint(t *testing.T) {
	// Two unresolved publishes under the same owner collapse into one
	// placeholder topic, set semantics.
	raw := &RawScan{
		ArtifactID:                  "svc",
		FunctionMappings:            map[string]string{"f": "I.f()"},
		MethodImplementationMapping: map[string]string{"I.f()": "Impl.f()"},
		EventPublisherInvocations: []EventPublisherInvocation{
			{TopicResolution: ResolutionUnknownVariable, CallChain: chain(public("Impl.f()"))},
			{TopicResolution: ResolutionUnknownConstant, CallChain: chain(public("Impl.f()"))},
		},
	}

	ps, err := newTestProcessor().Process(raw)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	got := ps.EntryPointChildren["f"].Topics
	if !reflect.DeepEqual(got, []string{UnknownTopicPlaceholder}) {
		t.Errorf("Expected a single placeholder topic, got %v", got)
	}
}

func TestProcessMultipleOwners(t *testing.T) {
	// One invocation whose chain crosses two entry points lands under both.
	raw := &RawScan{
		ArtifactID: "svc",
		FunctionMappings: map[string]string{
			"alpha": "I.alpha()",
			"beta":  "I.beta()",
		},
		MethodImplementationMapping: map[string]string{
			"I.alpha()": "Impl.alpha()",
			"I.beta()":  "Impl.beta()",
		},
		FunctionUsages: []FunctionUsage{{
			FunctionName: "shared",
			Invocations: []FunctionInvocation{{
				InvocationType: "execute",
				CallChain: chain(
					private("Impl.alpha()"),
					private("Impl.beta()"),
				),
			}},
		}},
	}

	ps, err := newTestProcessor().Process(raw)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	for _, owner := range []string{"alpha", "beta"} {
		if !reflect.DeepEqual(ps.EntryPointChildren[owner].Functions, []string{"shared"}) {
			t.Errorf("Expected owner %s to carry function shared, got %v",
				owner, ps.EntryPointChildren[owner].Functions)
		}
	}
}

func TestProcessUIServiceOwnership(t *testing.T) {
	raw := &RawScan{
		ArtifactID:                  "ui-svc",
		IsUIService:                 true,
		UIServiceMethodMappings:     map[string]string{"renderForm": "IUi.renderForm()"},
		MethodImplementationMapping: map[string]string{"IUi.renderForm()": "UiImpl.renderForm()"},
		FunctionUsages: []FunctionUsage{{
			FunctionName: "loadFormDefaults",
			Invocations: []FunctionInvocation{{
				InvocationType: "execute",
				CallChain:      chain(private("UiImpl.renderForm()")),
			}},
		}},
	}

	ps, err := newTestProcessor().Process(raw)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	got := ps.EntryPointChildren["renderForm"].Functions
	if !reflect.DeepEqual(got, []string{"loadFormDefaults"}) {
		t.Errorf("Expected UI method to own loadFormDefaults, got %v", got)
	}
}

func TestProcessIsIdempotent(t *testing.T) {
	raw := &RawScan{
		ArtifactID:                  "svc",
		FunctionMappings:            map[string]string{"f": "I.f()"},
		MethodImplementationMapping: map[string]string{"I.f()": "Impl.f()"},
		FunctionUsages: []FunctionUsage{{
			FunctionName: "g",
			Invocations: []FunctionInvocation{{
				InvocationType: "execute",
				CallChain:      chain(public("Impl.f()")),
			}},
		}},
		ServiceUsages: []ServiceUsage{{
			ServiceID: "other",
			Invocations: []ServiceInvocation{{
				TargetInterfaceMethod: "IOther.m()",
				CallChain:             chain(public("Impl.f()")),
			}},
		}},
	}

	p := newTestProcessor()
	first, err := p.Process(raw)
	if err != nil {
		t.Fatalf("First process failed: %v", err)
	}
	second, err := p.Process(raw)
	if err != nil {
		t.Fatalf("Second process failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("Processing the same raw scan twice must yield identical results")
	}
}
