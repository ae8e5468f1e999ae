package report

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrParse is wrapped by every report decoding failure.
var ErrParse = errors.New("report parse failed")

// maxLineBytes bounds a single report line; error traces can be long.
const maxLineBytes = 4 * 1024 * 1024

// ParseError identifies the offending line of a malformed report.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}

// ParseFile reads the report at path. It must only be called once the runner
// has exited.
func ParseFile(path string) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	defer f.Close()

	samples, err := Parse(f)
	var perr *ParseError
	if errors.As(err, &perr) {
		perr.Path = path
	}
	return samples, err
}

// Parse decodes one JSON object per line, preserving order. Blank lines are
// ignored. The first malformed line, or a line without a valid status,
// aborts the parse.
func Parse(r io.Reader) ([]Sample, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var samples []Sample
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		sample, err := decodeLine(line)
		if err != nil {
			return nil, &ParseError{Line: lineNo, Err: err}
		}
		samples = append(samples, sample)
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Line: lineNo + 1, Err: err}
	}
	return samples, nil
}

func decodeLine(line []byte) (Sample, error) {
	var s Sample
	if err := json.Unmarshal(line, &s); err != nil {
		return Sample{}, err
	}
	if s.Status == "" {
		return Sample{}, errors.New("missing status")
	}
	return s, nil
}
