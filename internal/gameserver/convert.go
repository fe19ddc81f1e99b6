package gameserver

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/combatsim/internal/simulation"
)

// Struct numbers are float64, so 64-bit seeds travel as decimal strings.

func requestFrom(in *structpb.Struct) (simulation.Request, error) {
	f := in.GetFields()
	req := simulation.Request{EncounterID: f["encounter_id"].GetStringValue()}
	if req.EncounterID == "" {
		return req, fmt.Errorf("encounter_id is required")
	}
	seed, err := uintField(f, "seed")
	if err != nil {
		return req, err
	}
	req.Seed = seed
	roundCap, err := intField(f, "round_cap")
	if err != nil {
		return req, err
	}
	req.RoundCap = roundCap
	return req, nil
}

func uintField(f map[string]*structpb.Value, name string) (uint64, error) {
	v, ok := f[name]
	if !ok {
		return 0, nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		n, err := strconv.ParseUint(k.StringValue, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", name, err)
		}
		return n, nil
	case *structpb.Value_NumberValue:
		if k.NumberValue < 0 || k.NumberValue != math.Trunc(k.NumberValue) {
			return 0, fmt.Errorf("%s must be a non-negative integer", name)
		}
		return uint64(k.NumberValue), nil
	case *structpb.Value_NullValue:
		return 0, nil
	default:
		return 0, fmt.Errorf("%s must be a number or decimal string", name)
	}
}

func intField(f map[string]*structpb.Value, name string) (int, error) {
	n, err := uintField(f, name)
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt32 {
		return 0, fmt.Errorf("%s out of range", name)
	}
	return int(n), nil
}

// toStruct converts v to a Struct through its JSON form, rewriting the named
// uint64 fields as decimal strings.
func toStruct(v any, seeds map[string]uint64) (*structpb.Struct, error) {
	m, err := toMap(v)
	if err != nil {
		return nil, err
	}
	for k, seed := range seeds {
		m[k] = strconv.FormatUint(seed, 10)
	}
	return structpb.NewStruct(m)
}

func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding response: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("encoding response: %w", err)
	}
	return m, nil
}

func recordStruct(rec *simulation.Record) (*structpb.Struct, error) {
	return toStruct(rec, map[string]uint64{"seed": rec.Seed})
}

func recordMap(rec *simulation.Record) (map[string]any, error) {
	m, err := toMap(rec)
	if err != nil {
		return nil, err
	}
	m["seed"] = strconv.FormatUint(rec.Seed, 10)
	return m, nil
}
