package protocol

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func TestRequestDurationAcceptsNumberOrString(t *testing.T) {
	cases := map[string]Seconds{
		`{"type":"admin","duration":30}`:      30,
		`{"type":"admin","duration":"45"}`:    45,
		`{"type":"admin","duration":" 12 "}`:  12,
		`{"type":"admin","duration":"soon"}`:  0,
		`{"type":"admin","duration":null}`:    0,
		`{"type":"admin"}`:                    0,
		`{"type":"admin","duration":"NaN"}`:   0,
		`{"type":"admin","duration":1e300}`:   math.MaxInt64,
		`{"type":"admin","duration":"1e300"}`: math.MaxInt64,
		`{"type":"admin","duration":"-Inf"}`:  math.MinInt64,
		`{"type":"admin","duration":"1e400"}`: math.MaxInt64,
	}
	for raw, want := range cases {
		var req Request
		if err := json.Unmarshal([]byte(raw), &req); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
		if req.Duration != want {
			t.Errorf("%s: duration = %d, want %d", raw, req.Duration, want)
		}
	}
}

func TestRequestDecodesCamelCaseFields(t *testing.T) {
	raw := `{"type":"admin","action":"delete_messages","targetId":"s1","targetName":"bob",` +
		`"targetIp":"10.0.0.1","messageId":"m1","messageIds":["m2"],"adminPassword":"pw",` +
		`"config":{"familyFriendly":true,"unknown":1}}`
	var req Request
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.TargetID != "s1" || req.TargetName != "bob" || req.TargetIP != "10.0.0.1" ||
		req.MessageID != "m1" || len(req.MessageIDs) != 1 || req.AdminPassword != "pw" {
		t.Fatalf("unexpected request: %#v", req)
	}
	if req.Config == nil || req.Config.FamilyFriendly == nil || !*req.Config.FamilyFriendly || req.Config.FilteredTerms != nil {
		t.Fatalf("unexpected config patch: %#v", req.Config)
	}
}

func TestActionResultEncodesFalse(t *testing.T) {
	data, err := json.Marshal(NewActionResult("kick", false))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(data), `"ok":false`) {
		t.Fatalf("ok=false must be encoded, got %s", data)
	}
}

func TestUserOmitsEmptyIP(t *testing.T) {
	data, _ := json.Marshal(User{ID: "a", Name: "alice", Channel: "general"})
	if strings.Contains(string(data), `"ip"`) {
		t.Fatalf("empty ip must be omitted, got %s", data)
	}
}
