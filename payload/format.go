package payload

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

const (
	// NoData replaces an absent or null payload so text is never blank.
	NoData = "(no data)"

	// NestedOnly is the summary of a container with no scalar entries.
	NestedOnly = "(nested data only)"

	// MaxSummaryValue is how many runes of a string a summary keeps.
	MaxSummaryValue = 50
)

// Summarize renders the top level of v: one "key: value" line per scalar
// field. Nested objects and arrays are left out.
func Summarize(v Value) string {
	switch v.Kind {
	case Null:
		return NoData
	case Object:
		if len(v.Fields) == 0 {
			return "{}"
		}
		var lines []string
		for _, f := range v.Fields {
			if f.Value.Kind.Scalar() {
				lines = append(lines, f.Key+": "+scalarText(f.Value))
			}
		}
		if len(lines) == 0 {
			return NestedOnly
		}
		return strings.Join(lines, "\n")
	case Array:
		if len(v.Items) == 0 {
			return "[]"
		}
		var lines []string
		for i, it := range v.Items {
			if it.Kind.Scalar() {
				lines = append(lines, "["+strconv.Itoa(i)+"]: "+scalarText(it))
			}
		}
		if len(lines) == 0 {
			return "[" + strconv.Itoa(len(v.Items)) + " items]"
		}
		return strings.Join(lines, "\n")
	case String:
		if v.Str == "" {
			return `""`
		}
		return scalarText(v)
	default:
		return scalarText(v)
	}
}

// SummarizeRaw parses and summarizes raw.
func SummarizeRaw(raw json.RawMessage) string {
	return Summarize(FromRaw(raw))
}

func scalarText(v Value) string {
	switch v.Kind {
	case Bool:
		return strconv.FormatBool(v.Bool)
	case Number:
		return v.Num.String()
	case String:
		return truncate(v.Str, MaxSummaryValue)
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// FullText renders the whole tree as indented JSON, keeping field order.
func FullText(v Value) string {
	if v.Kind == Null {
		return NoData
	}
	var b strings.Builder
	writeJSON(&b, v, 0)
	return b.String()
}

// FullTextRaw parses raw and renders it with FullText.
func FullTextRaw(raw json.RawMessage) string {
	return FullText(FromRaw(raw))
}

func writeJSON(b *strings.Builder, v Value, depth int) {
	switch v.Kind {
	case Null:
		b.WriteString("null")
	case Bool, Number:
		b.WriteString(scalarJSON(v))
	case String:
		b.WriteString(quote(v.Str))
	case Object:
		if len(v.Fields) == 0 {
			b.WriteString("{}")
			return
		}
		b.WriteString("{\n")
		for i, f := range v.Fields {
			indent(b, depth+1)
			b.WriteString(quote(f.Key))
			b.WriteString(": ")
			writeJSON(b, f.Value, depth+1)
			if i < len(v.Fields)-1 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		indent(b, depth)
		b.WriteByte('}')
	case Array:
		if len(v.Items) == 0 {
			b.WriteString("[]")
			return
		}
		b.WriteString("[\n")
		for i, it := range v.Items {
			indent(b, depth+1)
			writeJSON(b, it, depth+1)
			if i < len(v.Items)-1 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		indent(b, depth)
		b.WriteByte(']')
	}
}

func scalarJSON(v Value) string {
	if v.Kind == Bool {
		return strconv.FormatBool(v.Bool)
	}
	return v.Num.String()
}

func indent(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
}

func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}
