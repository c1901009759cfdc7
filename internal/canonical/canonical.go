// Package canonical encodes values as RFC 8785 (JCS) canonical JSON and
// derives content hashes from that encoding. Used for the report digest
// recorded in receipts, where the same data must always produce the
// same bytes regardless of formatting or key order.
package canonical

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"unicode/utf16"
)

// Marshal returns the canonical JSON encoding of v.
func Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Hash returns "sha256:<hex>" over the canonical encoding of v.
func Hash(v interface{}) (string, error) {
	encoded, err := Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize: %w", err)
	}
	sum := sha256.Sum256(encoded)
	return fmt.Sprintf("sha256:%x", sum), nil
}

// HashBytes canonicalizes raw JSON before hashing, so formatting
// differences in the source file do not change the digest.
func HashBytes(raw []byte) (string, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("failed to parse JSON for hashing: %w", err)
	}
	return Hash(v)
}

func writeValue(buf *bytes.Buffer, v interface{}) error {
	if v == nil {
		buf.WriteString("null")
		return nil
	}

	switch val := v.(type) {
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case float64:
		s, err := formatNumber(val)
		if err != nil {
			return err
		}
		buf.WriteString(s)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return err
		}
		s, err := formatNumber(f)
		if err != nil {
			return err
		}
		buf.WriteString(s)
	case int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case string:
		writeString(buf, val)
	case []interface{}:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]interface{}:
		return writeObject(buf, val)
	default:
		// Structs and other marshalable values go through encoding/json
		// and are re-canonicalized.
		b, err := json.Marshal(val)
		if err != nil {
			return err
		}
		var decoded interface{}
		if err := json.Unmarshal(b, &decoded); err != nil {
			return err
		}
		return writeValue(buf, decoded)
	}
	return nil
}

// writeObject emits keys sorted by UTF-16 code units, per RFC 8785.
func writeObject(buf *bytes.Buffer, m map[string]interface{}) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return compareUTF16(keys[i], keys[j]) < 0
	})

	buf.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(buf, key)
		buf.WriteByte(':')
		if err := writeValue(buf, m[key]); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func compareUTF16(a, b string) int {
	aUnits := utf16.Encode([]rune(a))
	bUnits := utf16.Encode([]rune(b))

	n := len(aUnits)
	if len(bUnits) < n {
		n = len(bUnits)
	}
	for i := 0; i < n; i++ {
		if aUnits[i] != bUnits[i] {
			if aUnits[i] < bUnits[i] {
				return -1
			}
			return 1
		}
	}
	return len(aUnits) - len(bUnits)
}

func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(buf, `\u%04x`, r)
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}

func formatNumber(f float64) (string, error) {
	if f != f {
		return "", fmt.Errorf("NaN is not a valid JSON number")
	}
	if f > 1.7976931348623157e+308 || f < -1.7976931348623157e+308 {
		return "", fmt.Errorf("infinity is not a valid JSON number")
	}
	if f == 0 {
		return "0", nil // covers -0 per RFC 8785
	}
	if f == float64(int64(f)) && f >= -9007199254740991 && f <= 9007199254740991 {
		return strconv.FormatInt(int64(f), 10), nil
	}
	return strconv.FormatFloat(f, 'g', -1, 64), nil
}
