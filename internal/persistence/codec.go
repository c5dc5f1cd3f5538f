package persistence

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/petrijr/plano/pkg/api"
)

func init() {
	// Generic containers appear in states decoded from JSON and YAML.
	gob.Register(map[string]any{})
	gob.Register([]any{})
}

// EncodeValue serializes v with encoding/gob. The value is encoded as an
// interface so it decodes back to its dynamic type; custom types must be
// registered with gob.Register first. A nil value encodes to nil.
func EncodeValue(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	iv := v
	if err := gob.NewEncoder(&buf).Encode(&iv); err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return buf.Bytes(), nil
}

// DecodeValue decodes a payload written by EncodeValue into T.
func DecodeValue[T any](data []byte) (T, error) {
	var zero T
	if len(data) == 0 {
		return zero, nil
	}
	var iv any
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&iv); err != nil {
		return zero, fmt.Errorf("decode value: %w", err)
	}
	return api.Cast[T](iv)
}

func encodeTrace(t api.Trace) ([]byte, error) {
	if len(t) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(t); err != nil {
		return nil, fmt.Errorf("encode trace: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeTrace(data []byte) (api.Trace, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var t api.Trace
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&t); err != nil {
		return nil, fmt.Errorf("decode trace: %w", err)
	}
	return t, nil
}

// encodedRun is the flat form of a RunRecord shared by the SQL, Redis and
// MongoDB stores. Times are unix nanoseconds so every backend round-trips
// them exactly.
type encodedRun struct {
	ID         string `bson:"_id"`
	Plan       string `bson:"plan"`
	Status     string `bson:"status"`
	Output     []byte `bson:"output,omitempty"`
	Err        string `bson:"error"`
	Trace      []byte `bson:"trace,omitempty"`
	StartedNS  int64  `bson:"started_ns"`
	DurationNS int64  `bson:"duration_ns"`
}

func encodeRun(rec *RunRecord) (encodedRun, error) {
	out, err := EncodeValue(rec.Output)
	if err != nil {
		return encodedRun{}, err
	}
	trace, err := encodeTrace(rec.Trace)
	if err != nil {
		return encodedRun{}, err
	}
	return encodedRun{
		ID:         rec.ID,
		Plan:       rec.Plan,
		Status:     string(rec.Status),
		Output:     out,
		Err:        rec.Err,
		Trace:      trace,
		StartedNS:  rec.Started.UnixNano(),
		DurationNS: int64(rec.Duration),
	}, nil
}

func (e encodedRun) decode() (*RunRecord, error) {
	out, err := DecodeValue[any](e.Output)
	if err != nil {
		return nil, err
	}
	trace, err := decodeTrace(e.Trace)
	if err != nil {
		return nil, err
	}
	return &RunRecord{
		ID:       e.ID,
		Plan:     e.Plan,
		Status:   RunStatus(e.Status),
		Output:   out,
		Err:      e.Err,
		Trace:    trace,
		Started:  time.Unix(0, e.StartedNS),
		Duration: time.Duration(e.DurationNS),
	}, nil
}
