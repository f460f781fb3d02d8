package table

import (
	"fmt"
	"os"

	"tabsynth/internal/config"
)

// ReadSource opens and parses an input file by kind ("csv" or "html";
// empty means csv). Row-level parse problems go through onErr, hard
// failures (missing file, no header, no table) return an error.
func ReadSource(in config.Input, onErr func(line int, err error)) (*Table, error) {
	f, err := os.Open(in.Path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	switch in.Kind {
	case "", "csv":
		return ReadCSV(f, in.Options, onErr)
	case "html":
		return ReadHTML(f, in.Options, onErr)
	default:
		return nil, fmt.Errorf("unknown input kind %q", in.Kind)
	}
}
