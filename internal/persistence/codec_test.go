package persistence

import (
	"testing"

	"github.com/juhoh/flowline/pkg/api"
)

func TestEncodeDecodeNestedPayload(t *testing.T) {
	in := map[string]any{
		"platform": "twitter",
		"likes":    float64(120),
		"tags":     []any{"launch", "promo"},
		"nested":   map[string]any{"kind": "photo"},
	}

	data, err := EncodeValue(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodeValue[map[string]any](data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if out["platform"] != "twitter" || out["likes"] != float64(120) {
		t.Fatalf("scalar fields mangled: %v", out)
	}
	tags, ok := out["tags"].([]any)
	if !ok || len(tags) != 2 || tags[0] != "launch" {
		t.Fatalf("slice field mangled: %v", out["tags"])
	}
	nested, ok := out["nested"].(map[string]any)
	if !ok || nested["kind"] != "photo" {
		t.Fatalf("nested map mangled: %v", out["nested"])
	}
}

func TestEncodeNilIsEmpty(t *testing.T) {
	data, err := EncodeValue(nil)
	if err != nil {
		t.Fatalf("encode nil: %v", err)
	}
	if data != nil {
		t.Fatalf("expected nil bytes, got %v", data)
	}

	out, err := DecodeValue[map[string]any](nil)
	if err != nil {
		t.Fatalf("decode empty: %v", err)
	}
	if out != nil {
		t.Fatalf("expected zero value, got %v", out)
	}
}

func TestStepStatesRoundTrip(t *testing.T) {
	in := map[string]api.StepExecutionState{
		"s1": {StepID: "s1", Status: api.StepCompleted, Output: map[string]any{"posted": true}},
		"s2": {StepID: "s2", Status: api.StepFailedExec, Error: "upstream timeout"},
	}

	data, err := encodeStepStates(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := decodeStepStates(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if out["s1"].Status != api.StepCompleted || out["s1"].Output["posted"] != true {
		t.Fatalf("s1 mangled: %+v", out["s1"])
	}
	if out["s2"].Error != "upstream timeout" {
		t.Fatalf("s2 error lost: %+v", out["s2"])
	}
}

func TestStepStatesNil(t *testing.T) {
	data, err := encodeStepStates(nil)
	if err != nil {
		t.Fatalf("encode nil: %v", err)
	}
	out, err := decodeStepStates(data)
	if err != nil {
		t.Fatalf("decode nil: %v", err)
	}
	if out != nil {
		t.Fatalf("expected nil map, got %v", out)
	}
}
