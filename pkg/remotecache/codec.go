package remotecache

import (
	"encoding/json"
	"time"
)

// envelope is the tag+payload wire format Encode produces, in place of the
// source's pickle: a JSON object holding a type tag for the value's
// concrete Go type plus its JSON-encoded payload (no length prefix). The
// tag lets Decode reconstruct int32, int64, float64, time.Time and the other
// tagged scalars when the destination is an interface{}, instead of
// encoding/json's default untyped decode (which would coerce every number
// to float64). Values without a scalar tag (structs, maps, slices) are
// tagged "json" and still decode to encoding/json's defaults.
type envelope struct {
	Tag     string          `json:"t"`
	Payload json.RawMessage `json:"v"`
}

const (
	tagNull    = "null"
	tagString  = "string"
	tagBool    = "bool"
	tagInt     = "int"
	tagInt32   = "int32"
	tagInt64   = "int64"
	tagFloat32 = "float32"
	tagFloat64 = "float64"
	tagTime    = "time"
	tagJSON    = "json"
)

func tagOf(v any) string {
	switch v.(type) {
	case nil:
		return tagNull
	case string:
		return tagString
	case bool:
		return tagBool
	case int:
		return tagInt
	case int32:
		return tagInt32
	case int64:
		return tagInt64
	case float32:
		return tagFloat32
	case float64:
		return tagFloat64
	case time.Time:
		return tagTime
	default:
		return tagJSON
	}
}

// Encode produces the tagged envelope stored in the external cache.
func Encode(v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Tag: tagOf(v), Payload: payload})
}

// Decode unmarshals a payload previously produced by Encode into dst, which
// must be a non-nil pointer. When dst is a *interface{}, the envelope's tag
// reconstructs the original concrete scalar/time type rather than handing
// back encoding/json's default (float64 for every number); values tagged
// "json" (structs, maps, slices) come back as encoding/json's defaults
// (map[string]any, []any, float64 numbers). Any other concrete destination
// type decodes the payload directly, same as json.Unmarshal would.
func Decode(payload []byte, dst any) error {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return err
	}

	ptr, ok := dst.(*any)
	if !ok {
		return json.Unmarshal(env.Payload, dst)
	}

	switch env.Tag {
	case tagNull:
		*ptr = nil
		return nil
	case tagString:
		var v string
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return err
		}
		*ptr = v
	case tagBool:
		var v bool
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return err
		}
		*ptr = v
	case tagInt:
		var v int
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return err
		}
		*ptr = v
	case tagInt32:
		var v int32
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return err
		}
		*ptr = v
	case tagInt64:
		var v int64
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return err
		}
		*ptr = v
	case tagFloat32:
		var v float32
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return err
		}
		*ptr = v
	case tagFloat64:
		var v float64
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return err
		}
		*ptr = v
	case tagTime:
		var v time.Time
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return err
		}
		*ptr = v
	default:
		var v any
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return err
		}
		*ptr = v
	}
	return nil
}
