package scan

// ServiceCall references one interface method on another service.
type ServiceCall struct {
	ServiceID       string `json:"serviceId"`
	InterfaceMethod string `json:"interfaceMethod"`
}

// Dependencies is the set of direct leaf dependencies attributed to one entry
// point or one public method. The three name collections behave as
// insertion-ordered sets; service calls are deduplicated on the
// (serviceId, interfaceMethod) pair.
type Dependencies struct {
	Functions      []string      `json:"functions,omitempty"`
	AsyncFunctions []string      `json:"asyncFunctions,omitempty"`
	Topics         []string      `json:"topics,omitempty"`
	ServiceCalls   []ServiceCall `json:"serviceCalls,omitempty"`
}

// NewDependencies returns an empty dependency set.
func NewDependencies() *Dependencies {
	return &Dependencies{}
}

// AddFunction records a sync function dependency, preserving first-seen order.
func (d *Dependencies) AddFunction(name string) {
	d.Functions = appendUnique(d.Functions, name)
}

// AddAsyncFunction records an async function dependency.
func (d *Dependencies) AddAsyncFunction(name string) {
	d.AsyncFunctions = appendUnique(d.AsyncFunctions, name)
}

// AddTopic records a topic-publish dependency.
func (d *Dependencies) AddTopic(name string) {
	d.Topics = appendUnique(d.Topics, name)
}

// AddServiceCall records a call to another service's interface method.
func (d *Dependencies) AddServiceCall(serviceID, interfaceMethod string) {
	for _, c := range d.ServiceCalls {
		if c.ServiceID == serviceID && c.InterfaceMethod == interfaceMethod {
			return
		}
	}
	d.ServiceCalls = append(d.ServiceCalls, ServiceCall{
		ServiceID:       serviceID,
		InterfaceMethod: interfaceMethod,
	})
}

// Merge folds another dependency set into this one, keeping set semantics.
func (d *Dependencies) Merge(other *Dependencies) {
	if other == nil {
		return
	}
	for _, f := range other.Functions {
		d.AddFunction(f)
	}
	for _, f := range other.AsyncFunctions {
		d.AddAsyncFunction(f)
	}
	for _, t := range other.Topics {
		d.AddTopic(t)
	}
	for _, c := range other.ServiceCalls {
		d.AddServiceCall(c.ServiceID, c.InterfaceMethod)
	}
}

// IsEmpty reports whether the set carries no dependencies at all.
func (d *Dependencies) IsEmpty() bool {
	return len(d.Functions) == 0 &&
		len(d.AsyncFunctions) == 0 &&
		len(d.Topics) == 0 &&
		len(d.ServiceCalls) == 0
}

// Copy returns a deep copy.
func (d *Dependencies) Copy() *Dependencies {
	c := &Dependencies{}
	c.Functions = append(c.Functions, d.Functions...)
	c.AsyncFunctions = append(c.AsyncFunctions, d.AsyncFunctions...)
	c.Topics = append(c.Topics, d.Topics...)
	c.ServiceCalls = append(c.ServiceCalls, d.ServiceCalls...)
	return c
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
