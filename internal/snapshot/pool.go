package snapshot

// ChildRef is one reference in a function pool entry: a sync function ref,
// an async function ref, or a topic publish ref. Discrimination follows the
// present fields, mirroring the template leaves.
type ChildRef struct {
	Ref          string `json:"ref,omitempty"`
	Async        bool   `json:"async,omitempty"`
	TopicName    string `json:"topicName,omitempty"`
	TopicPublish bool   `json:"topicPublish,omitempty"`
	QueueName    string `json:"queueName,omitempty"`
}

// SyncRef creates a synchronous function reference.
func SyncRef(functionName string) ChildRef {
	return ChildRef{Ref: functionName}
}

// AsyncRef creates an asynchronous function reference.
func AsyncRef(functionName, queueName string) ChildRef {
	return ChildRef{Ref: functionName, Async: true, QueueName: queueName}
}

// TopicRef creates a topic publish reference.
func TopicRef(topicName, queueName string) ChildRef {
	return ChildRef{TopicName: topicName, TopicPublish: true, QueueName: queueName}
}

// IsSyncRef reports whether this is a sync function reference.
func (c ChildRef) IsSyncRef() bool {
	return c.Ref != "" && !c.Async && !c.TopicPublish
}

// IsAsyncRef reports whether this is an async function reference.
func (c ChildRef) IsAsyncRef() bool {
	return c.Ref != "" && c.Async
}

// IsTopicRef reports whether this is a topic publish reference.
func (c ChildRef) IsTopicRef() bool {
	return c.TopicPublish
}

// FunctionPoolEntry is one function's entry in the pool: the owning app plus
// the function's resolved children. Duplicate suppression is semantic: one
// sync ref per function name, one async ref per function name, one topic ref
// per topic name (queue names are content, not identity).
type FunctionPoolEntry struct {
	App      string     `json:"app,omitempty"`
	Children []ChildRef `json:"children,omitempty"`
}

// NewFunctionPoolEntry creates an entry owned by the given app.
func NewFunctionPoolEntry(app string) *FunctionPoolEntry {
	return &FunctionPoolEntry{App: app}
}

// ContainsSyncRef reports whether a sync ref for the function exists.
func (e *FunctionPoolEntry) ContainsSyncRef(functionName string) bool {
	for _, c := range e.Children {
		if c.IsSyncRef() && c.Ref == functionName {
			return true
		}
	}
	return false
}

// ContainsAsyncRef reports whether an async ref for the function exists.
func (e *FunctionPoolEntry) ContainsAsyncRef(functionName string) bool {
	for _, c := range e.Children {
		if c.IsAsyncRef() && c.Ref == functionName {
			return true
		}
	}
	return false
}

// ContainsTopicRef reports whether a topic ref for the topic exists.
func (e *FunctionPoolEntry) ContainsTopicRef(topicName string) bool {
	for _, c := range e.Children {
		if c.IsTopicRef() && c.TopicName == topicName {
			return true
		}
	}
	return false
}

// AddSyncRef appends a sync function reference.
func (e *FunctionPoolEntry) AddSyncRef(functionName string) {
	e.Children = append(e.Children, SyncRef(functionName))
}

// AddAsyncRef appends an async function reference.
func (e *FunctionPoolEntry) AddAsyncRef(functionName, queueName string) {
	e.Children = append(e.Children, AsyncRef(functionName, queueName))
}

// AddTopicRef appends a topic publish reference.
func (e *FunctionPoolEntry) AddTopicRef(topicName, queueName string) {
	e.Children = append(e.Children, TopicRef(topicName, queueName))
}
