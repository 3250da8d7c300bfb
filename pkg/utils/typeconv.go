package utils

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ToString converts a legacy document value to a string. ObjectIDs become
// their hex form, nil becomes the empty string.
func ToString(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case primitive.ObjectID:
		return v.Hex()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ToStringOr returns the value as a string, or fallback when the value is
// absent or empty.
func ToStringOr(val interface{}, fallback string) string {
	s := ToString(val)
	if s == "" {
		return fallback
	}
	return s
}

// ToNullableString returns nil for absent values so they land as SQL NULL.
func ToNullableString(val interface{}) interface{} {
	if val == nil {
		return nil
	}
	s := ToString(val)
	if s == "" {
		return nil
	}
	return s
}

// ToBool converts a legacy value to bool, defaulting to fallback for
// anything that is not a bool.
func ToBool(val interface{}, fallback bool) bool {
	if b, ok := val.(bool); ok {
		return b
	}
	return fallback
}

// ToTime converts a legacy value to time.Time. Mongo stores datetimes as
// primitive.DateTime; string timestamps show up in hand-edited documents.
// Anything unparseable falls back to the given time.
func ToTime(val interface{}, fallback time.Time) time.Time {
	switch v := val.(type) {
	case time.Time:
		return v
	case primitive.DateTime:
		return v.Time()
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t
			}
		}
		return fallback
	default:
		return fallback
	}
}

// ToStringSlice converts a bson array to a string slice, dropping
// non-string members.
func ToStringSlice(val interface{}) []string {
	arr, ok := val.(primitive.A)
	if !ok {
		if plain, ok := val.([]interface{}); ok {
			arr = plain
		} else {
			return nil
		}
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// ToJSON serializes a legacy value (typically a bson map or array) to JSON
// text for a jsonb column. Absent values serialize to fallback.
func ToJSON(val interface{}, fallback string) (string, error) {
	if val == nil {
		return fallback, nil
	}
	raw, err := json.Marshal(normalize(val))
	if err != nil {
		return "", fmt.Errorf("cannot serialize value to JSON: %w", err)
	}
	return string(raw), nil
}

// normalize rewrites bson-specific types into plain JSON-friendly ones so
// the target columns hold portable JSON, not driver artifacts.
func normalize(val interface{}) interface{} {
	switch v := val.(type) {
	case primitive.DateTime:
		return v.Time().UTC().Format("2006-01-02T15:04:05.000000Z")
	case time.Time:
		return v.UTC().Format("2006-01-02T15:04:05.000000Z")
	case primitive.ObjectID:
		return v.Hex()
	case primitive.A:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = normalize(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = normalize(item)
		}
		return out
	case bson.M:
		out := make(map[string]interface{}, len(v))
		for k, item := range v {
			out[k] = normalize(item)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, item := range v {
			out[k] = normalize(item)
		}
		return out
	case bson.D:
		out := make(map[string]interface{}, len(v))
		for _, e := range v {
			out[e.Key] = normalize(e.Value)
		}
		return out
	default:
		return v
	}
}
