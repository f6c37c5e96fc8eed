package assets

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// LoadExamples reads the worked-examples library. A missing file or an empty
// path yields no examples.
func LoadExamples(path string) ([]ExampleSet, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading examples %q: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}

	var sets []ExampleSet
	if err := json.Unmarshal(data, &sets); err != nil {
		return nil, fmt.Errorf("parsing examples %q: %w", path, err)
	}
	return sets, nil
}
