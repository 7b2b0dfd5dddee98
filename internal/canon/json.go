// Package canon implements the single canonical-JSON primitive used by
// hashing, plan emission, and the amendment engine: UTF-8 bytes, object keys
// sorted at every level, no NaN/Infinity, decimals in normalized textual
// form, and stable array order everywhere array order is semantic.
package canon

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/sans-lang/sans/internal/detorder"
	"github.com/sans-lang/sans/internal/value"
)

// Marshal renders v as canonical JSON bytes. v must be built from the
// JSON-safe primitives this package understands: nil, bool, string,
// json number types (int, int64, *big.Int), value.Decimal (written as a
// JSON string of its normalized text), map[string]any (keys sorted), and
// []any (order preserved).
func Marshal(v any) []byte {
	var sb strings.Builder
	encode(&sb, v)
	return []byte(sb.String())
}

func encode(sb *strings.Builder, v any) {
	switch t := v.(type) {
	case nil:
		sb.WriteString("null")
	case bool:
		if t {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case string:
		encodeString(sb, t)
	case int:
		sb.WriteString(strconv.Itoa(t))
	case int64:
		sb.WriteString(strconv.FormatInt(t, 10))
	case *big.Int:
		sb.WriteString(t.String())
	case value.Decimal:
		encodeString(sb, t.String())
	case value.Value:
		encodeValue(sb, t)
	case map[string]any:
		encodeObject(sb, t)
	case []any:
		sb.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				sb.WriteByte(',')
			}
			encode(sb, e)
		}
		sb.WriteByte(']')
	case []string:
		arr := make([]any, len(t))
		for i, s := range t {
			arr[i] = s
		}
		encode(sb, arr)
	default:
		panic(fmt.Sprintf("canon: unsupported value type %T", v))
	}
}

// encodeValue renders a value.Value as its canonical JSON shape: a tagged
// object, since bare JSON cannot distinguish INT/DECIMAL/STRING/NULL/BOOL
// round-trippably for every case the engine needs (e.g. DECIMAL vs STRING
// that looks numeric).
func encodeValue(sb *strings.Builder, v value.Value) {
	m := map[string]any{"kind": string(v.Kind)}
	switch v.Kind {
	case value.KindBool:
		m["value"] = v.B
	case value.KindInt:
		m["value"] = v.I
	case value.KindDecimal:
		m["value"] = v.D
	case value.KindString:
		m["value"] = v.S
	}
	encodeObject(sb, m)
}

func encodeObject(sb *strings.Builder, m map[string]any) {
	sb.WriteByte('{')
	i := 0
	for k, v := range detorder.Keys(m) {
		if i > 0 {
			sb.WriteByte(',')
		}
		encodeString(sb, k)
		sb.WriteByte(':')
		encode(sb, v)
		i++
	}
	sb.WriteByte('}')
}

func encodeString(sb *strings.Builder, s string) {
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if r < 0x20 {
				sb.WriteString(fmt.Sprintf(`\u%04x`, r))
			} else {
				sb.WriteRune(r)
			}
		}
	}
	sb.WriteByte('"')
}
