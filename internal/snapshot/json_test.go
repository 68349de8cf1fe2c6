package snapshot

import (
	"encoding/json"
	"testing"
)

func marshal(t *testing.T, v interface{}) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	return string(data)
}

func TestTemplateNodeJSONShapes(t *testing.T) {
	tests := []struct {
		name string
		node *TemplateNode
		want string
	}{
		{
			"app root",
			App("my-app"),
			`{"name":"my-app","type":"app"}`,
		},
		{
			"function ref",
			FunctionRef("doWork"),
			`{"ref":"doWork"}`,
		},
		{
			"async function ref",
			AsyncFunctionRef("doLater", "WORK.Q"),
			`{"ref":"doLater","async":true,"queueName":"WORK.Q"}`,
		},
		{
			"topic publish ref",
			TopicPublishRef("PaymentPosting", "PAY.Q"),
			`{"queueName":"PAY.Q","topicName":"PaymentPosting","topicPublish":true}`,
		},
		{
			"ui services container",
			UIServices("WT4545J"),
			`{"name":"WT4545J","type":"ui-services"}`,
		},
		{
			"ui service method",
			UIServiceMethod("renderForm"),
			`{"name":"renderForm","type":"ui-service-method"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := marshal(t, tt.node); got != tt.want {
				t.Errorf("Got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestTemplateNodeChildrenNesting(t *testing.T) {
	root := App("app")
	root.AddFunctionRef("f")
	container := UIServices("ui")
	container.AddChild(UIServiceMethod("m"))
	root.AddChild(container)

	got := marshal(t, root)
	want := `{"name":"app","type":"app","children":[{"ref":"f"},` +
		`{"name":"ui","type":"ui-services","children":[{"name":"m","type":"ui-service-method"}]}]}`
	if got != want {
		t.Errorf("Got %s, want %s", got, want)
	}
}

func TestChildRefJSONShapes(t *testing.T) {
	tests := []struct {
		name string
		ref  ChildRef
		want string
	}{
		{"sync", SyncRef("f"), `{"ref":"f"}`},
		{"async", AsyncRef("g", "G.Q"), `{"ref":"g","async":true,"queueName":"G.Q"}`},
		{"topic", TopicRef("T", "T.Q"), `{"topicName":"T","topicPublish":true,"queueName":"T.Q"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := marshal(t, tt.ref); got != tt.want {
				t.Errorf("Got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFunctionPoolEntryJSON(t *testing.T) {
	entry := NewFunctionPoolEntry("my-app")
	entry.AddSyncRef("child")

	got := marshal(t, entry)
	want := `{"app":"my-app","children":[{"ref":"child"}]}`
	if got != want {
		t.Errorf("Got %s, want %s", got, want)
	}

	// Children are omitted entirely when empty.
	empty := NewFunctionPoolEntry("my-app")
	if got := marshal(t, empty); got != `{"app":"my-app"}` {
		t.Errorf("Got %s for empty entry", got)
	}
}

func TestSnapshotJSONEmptyCollections(t *testing.T) {
	s := NewSnapshot()
	s.AppTemplate = App("app")

	got := marshal(t, s)
	want := `{"appTemplate":{"name":"app","type":"app"},"functionPool":{},` +
		`"isComplete":true,"failedServices":[],"warnings":[]}`
	if got != want {
		t.Errorf("Got %s, want %s", got, want)
	}
}

func TestSnapshotJSONPreservesPoolKeyCasing(t *testing.T) {
	s := NewSnapshot()
	s.AppTemplate = App("app")
	s.GetOrCreateFunction("GetWageCount", "app")

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal([]byte(marshal(t, s)), &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	var pool map[string]json.RawMessage
	if err := json.Unmarshal(decoded["functionPool"], &pool); err != nil {
		t.Fatalf("Unmarshal pool failed: %v", err)
	}
	if _, ok := pool["GetWageCount"]; !ok {
		t.Errorf("Pool key casing not preserved: %v", pool)
	}
}

func TestBuildRequestJSONRoundTrip(t *testing.T) {
	input := `{"appName":"payroll","services":[{"serviceId":"emp","gitCommitHash":"c1"}]}`

	var req BuildRequest
	if err := json.Unmarshal([]byte(input), &req); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if req.AppName != "payroll" || len(req.Services) != 1 || req.Services[0].ServiceID != "emp" {
		t.Errorf("Unexpected request: %+v", req)
	}
}
