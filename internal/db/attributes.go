package db

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/sloppy/tychostore/internal/evm"
)

// encodeAttributes renders attributes as a JSON object of 0x hex strings.
// A nil or empty map is stored as NULL.
func encodeAttributes(attrs map[string]evm.Bytes) (any, error) {
	if len(attrs) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("%w: encode attributes: %w", ErrDecode, err)
	}
	return string(raw), nil
}

// decodeAttributes reverses encodeAttributes. Values that are hex strings
// decode to their bytes; any other JSON value is kept as its JSON text.
func decodeAttributes(raw *string) (map[string]evm.Bytes, error) {
	out := make(map[string]evm.Bytes)
	if raw == nil || *raw == "" {
		return out, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(*raw), &obj); err != nil {
		return nil, fmt.Errorf("%w: attributes are not a JSON object: %w", ErrDecode, err)
	}
	for k, v := range obj {
		var s string
		if err := json.Unmarshal(v, &s); err == nil && isHexString(s) {
			b, err := evm.ParseBytes(s)
			if err != nil {
				return nil, decodeErr(err)
			}
			out[k] = b
			continue
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, v); err != nil {
			return nil, fmt.Errorf("%w: attribute %s: %w", ErrDecode, k, err)
		}
		out[k] = evm.Bytes(compact.Bytes())
	}
	return out, nil
}

func isHexString(s string) bool {
	if len(s) < 2 || (s[:2] != "0x" && s[:2] != "0X") {
		return false
	}
	for _, r := range s[2:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
