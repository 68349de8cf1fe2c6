package scan

// ProcessedScan is the build-optimized form of one raw scan. It is produced
// once by the Processor, serialized into the scan store, and treated as
// read-only at build time.
type ProcessedScan struct {
	// FunctionMappings, UIServiceMethodMappings and MethodImplementationMapping
	// are carried over from the raw scan unchanged.
	FunctionMappings            map[string]string `json:"functionMappings,omitempty"`
	UIServiceMethodMappings     map[string]string `json:"uiServiceMethodMappings,omitempty"`
	MethodImplementationMapping map[string]string `json:"methodImplementationMapping,omitempty"`

	// EntryPointChildren maps each entry-point short name to its direct leaf
	// dependencies.
	EntryPointChildren map[string]*Dependencies `json:"entryPointChildren,omitempty"`

	// PublicMethodDependencies maps implementation method signatures to the
	// dependencies observed under them. Only methods with PUBLIC access appear
	// here; the table feeds transitive resolution when another service calls
	// into this one.
	PublicMethodDependencies map[string]*Dependencies `json:"publicMethodDependencies,omitempty"`
}

// NewProcessedScan returns an empty processed scan with allocated tables.
func NewProcessedScan() *ProcessedScan {
	return &ProcessedScan{
		FunctionMappings:            map[string]string{},
		UIServiceMethodMappings:     map[string]string{},
		MethodImplementationMapping: map[string]string{},
		EntryPointChildren:          map[string]*Dependencies{},
		PublicMethodDependencies:    map[string]*Dependencies{},
	}
}

// EntryPointNames returns the entry-point short names (function names for
// regular services, UI method names for UI services).
func (ps *ProcessedScan) EntryPointNames() []string {
	names := make([]string, 0, len(ps.FunctionMappings)+len(ps.UIServiceMethodMappings))
	for name := range ps.FunctionMappings {
		names = append(names, name)
	}
	for name := range ps.UIServiceMethodMappings {
		names = append(names, name)
	}
	return names
}
