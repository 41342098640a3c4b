package schema

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

const dateLayout = "2006-01-02"

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	dateLayout,
}

var formats = validator.New()

// Validate checks presence, type, enum and format constraints for every
// declared field, applies defaults and drops undeclared keys. All failures
// are reported together in a *ValidationError.
func (s *Schema) Validate(payload map[string]any) (Record, error) {
	ve := &ValidationError{Kind: s.kind}
	rec := s.validate(payload, "", ve)
	if len(ve.Errors) > 0 {
		return nil, ve
	}
	return rec, nil
}

func (s *Schema) validate(payload map[string]any, prefix string, ve *ValidationError) Record {
	rec := make(Record, len(s.fields))
	for _, f := range s.fields {
		path := joinPath(prefix, f.Name)
		raw, present := payload[f.Name]
		if !present {
			if f.Required {
				ve.add(path, ReasonMissing, "field required")
				continue
			}
			rec[f.Name] = f.defaultValue()
			continue
		}
		if raw == nil {
			if f.Nullable {
				rec[f.Name] = nil
				continue
			}
			ve.add(path, ReasonWrongType, "expected %s, got null", f.Type)
			continue
		}
		if v, ok := f.coerce(raw, path, ve); ok {
			rec[f.Name] = v
		}
	}
	return rec
}

func (f Field) coerce(raw any, path string, ve *ValidationError) (any, bool) {
	switch f.Type {
	case String:
		s, ok := raw.(string)
		if !ok {
			ve.add(path, ReasonWrongType, "expected string, got %s", typeName(raw))
		}
		return s, ok

	case Integer:
		n, reason := toInt(raw)
		switch reason {
		case ReasonWrongType:
			ve.add(path, reason, "expected integer, got %s", typeName(raw))
			return nil, false
		case ReasonOutOfRange:
			ve.add(path, reason, "must fit in a 64-bit signed integer")
			return nil, false
		}
		if f.NonNegative && n < 0 {
			ve.add(path, ReasonOutOfRange, "must be greater than or equal to 0")
			return nil, false
		}
		return n, true

	case Float:
		n, ok := toFloat(raw)
		if !ok {
			ve.add(path, ReasonWrongType, "expected float, got %s", typeName(raw))
			return nil, false
		}
		if f.NonNegative && n < 0 {
			ve.add(path, ReasonOutOfRange, "must be greater than or equal to 0")
			return nil, false
		}
		return n, true

	case Boolean:
		b, ok := raw.(bool)
		if !ok {
			ve.add(path, ReasonWrongType, "expected boolean, got %s", typeName(raw))
		}
		return b, ok

	case Date:
		s, ok := raw.(string)
		if !ok {
			ve.add(path, ReasonWrongType, "expected date string, got %s", typeName(raw))
			return nil, false
		}
		d, err := time.Parse(dateLayout, strings.TrimSpace(s))
		if err != nil {
			ve.add(path, ReasonMalformed, "expected date in YYYY-MM-DD format")
			return nil, false
		}
		return d.Format(dateLayout), true

	case Timestamp:
		return toTimestamp(raw, path, ve)

	case Enum:
		s, ok := raw.(string)
		if !ok {
			ve.add(path, ReasonWrongType, "expected string, got %s", typeName(raw))
			return nil, false
		}
		if !lo.Contains(f.Values, s) {
			ve.add(path, ReasonNotInEnum, "must be one of %s", strings.Join(f.Values, ", "))
			return nil, false
		}
		return s, true

	case Email:
		s, ok := raw.(string)
		if !ok {
			ve.add(path, ReasonWrongType, "expected string, got %s", typeName(raw))
			return nil, false
		}
		s = strings.TrimSpace(s)
		if err := formats.Var(s, "required,email"); err != nil {
			ve.add(path, ReasonMalformed, "not a valid email address")
			return nil, false
		}
		return normalizeEmail(s), true

	case StringList:
		return toStringList(raw, path, ve)

	case RecordList:
		return f.toRecordList(raw, path, ve)
	}

	ve.add(path, ReasonWrongType, "unsupported field type %s", f.Type)
	return nil, false
}

// normalizeEmail lowercases the domain part; the local part is kept as given.
func normalizeEmail(s string) string {
	at := strings.LastIndexByte(s, '@')
	if at < 0 {
		return s
	}
	return s[:at+1] + strings.ToLower(s[at+1:])
}

// toInt returns an empty reason on success.
func toInt(raw any) (int64, Reason) {
	switch v := raw.(type) {
	case int:
		return int64(v), ""
	case int32:
		return int64(v), ""
	case int64:
		return v, ""
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, ""
		}
		f, err := v.Float64()
		if err != nil && !math.IsInf(f, 0) {
			return 0, ReasonWrongType
		}
		return integral(f)
	case float64:
		return integral(v)
	}
	return 0, ReasonWrongType
}

func integral(f float64) (int64, Reason) {
	if math.IsInf(f, 0) {
		return 0, ReasonOutOfRange
	}
	if math.IsNaN(f) || f != math.Trunc(f) {
		return 0, ReasonWrongType
	}
	// float64(math.MaxInt64) rounds up to 2^63, so compare against 2^63.
	if f >= 1<<63 || f < -(1<<63) {
		return 0, ReasonOutOfRange
	}
	return int64(f), ""
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

func toTimestamp(raw any, path string, ve *ValidationError) (any, bool) {
	switch v := raw.(type) {
	case time.Time:
		return v.UTC(), true
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
		ve.add(path, ReasonMalformed, "expected an ISO 8601 timestamp")
		return nil, false
	case json.Number, float64, int, int64:
		secs, ok := toFloat(v)
		if !ok {
			break
		}
		whole, frac := math.Modf(secs)
		return time.Unix(int64(whole), int64(frac*1e9)).UTC(), true
	}
	ve.add(path, ReasonWrongType, "expected timestamp, got %s", typeName(raw))
	return nil, false
}

func toStringList(raw any, path string, ve *ValidationError) (any, bool) {
	if ss, ok := raw.([]string); ok {
		return append([]string{}, ss...), true
	}
	items, ok := raw.([]any)
	if !ok {
		ve.add(path, ReasonWrongType, "expected list of string, got %s", typeName(raw))
		return nil, false
	}
	out := make([]string, 0, len(items))
	valid := true
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			ve.add(joinPath(path, strconv.Itoa(i)), ReasonWrongType, "expected string, got %s", typeName(item))
			valid = false
			continue
		}
		out = append(out, s)
	}
	return out, valid
}

func (f Field) toRecordList(raw any, path string, ve *ValidationError) (any, bool) {
	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case []map[string]any:
		items = lo.Map(v, func(m map[string]any, _ int) any { return m })
	case []Record:
		items = lo.Map(v, func(r Record, _ int) any { return map[string]any(r) })
	default:
		ve.add(path, ReasonWrongType, "expected list of record, got %s", typeName(raw))
		return nil, false
	}

	before := len(ve.Errors)
	out := make([]Record, 0, len(items))
	for i, item := range items {
		elemPath := joinPath(path, strconv.Itoa(i))
		m, ok := item.(map[string]any)
		if !ok {
			ve.add(elemPath, ReasonWrongType, "expected record, got %s", typeName(item))
			continue
		}
		out = append(out, f.Of.validate(m, elemPath, ve))
	}
	return out, len(ve.Errors) == before
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64, float32, int, int32, int64:
		return "number"
	case []any, []string, []map[string]any:
		return "list"
	case map[string]any:
		return "object"
	default:
		return "value"
	}
}
