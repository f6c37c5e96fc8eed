package ai

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// FirstObject locates the first '{' in raw and decodes one JSON object from
// there. Leading commentary and anything after the object are ignored.
func FirstObject(raw string) (map[string]any, bool) {
	idx := strings.IndexByte(raw, '{')
	if idx < 0 {
		return nil, false
	}

	var data map[string]any
	if err := json.NewDecoder(bytes.NewReader([]byte(raw[idx:]))).Decode(&data); err != nil {
		return nil, false
	}

	return data, true
}

// DecodeFirstObject decodes the first JSON object of raw into out using
// out's json tags. Scalar types are coerced weakly, so "0.87" fills a float
// and a lone string fills a []string.
func DecodeFirstObject(raw string, out any) bool {
	data, ok := FirstObject(raw)
	if !ok {
		return false
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return false
	}

	return dec.Decode(data) == nil
}
