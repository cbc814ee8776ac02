package recipe

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// ParseError wraps a TOML decoding failure with the offending file path.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("recipe parse error: %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// LoadFile reads and validates a single recipe from a TOML file.
func LoadFile(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Recipe
	if err := toml.Unmarshal(data, &r); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if err := r.Validate(); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &r, nil
}
