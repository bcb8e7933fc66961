package persistence

import (
	"bytes"
	"encoding/gob"
	"time"

	"github.com/juhoh/flowline/pkg/api"
)

func init() {
	// Payload maps hold arbitrary nested values; register the composite
	// shapes gob cannot infer on its own.
	gob.Register(map[string]any{})
	gob.Register([]any{})
	gob.Register(time.Time{})
}

// EncodeValue serializes arbitrary Go values using encoding/gob.
// A nil value encodes to nil. Callers must ensure values are gob-encodable.
func EncodeValue(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeValue decodes data produced by EncodeValue into T.
// Empty data yields the zero value.
func DecodeValue[T any](data []byte) (T, error) {
	var v T
	if len(data) == 0 {
		return v, nil
	}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil {
		return v, err
	}
	return v, nil
}

// encodeStepStates and decodeStepStates wrap the codec for the per-run
// step-execution map persisted as one BLOB.
func encodeStepStates(m map[string]api.StepExecutionState) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return EncodeValue(m)
}

func decodeStepStates(data []byte) (map[string]api.StepExecutionState, error) {
	return DecodeValue[map[string]api.StepExecutionState](data)
}
