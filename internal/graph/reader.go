package graph

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ReadEdgeList parses a "source,target" edge list (comma or tab separated).
// A leading "source,target" header is skipped. Edge order is preserved.
// A single-field line starting with '#' is a comment; node ids themselves may
// start with '#'.
func ReadEdgeList(r io.Reader) (*Graph, error) {
	br := bufio.NewReader(r)

	comma := ','
	if head, _ := br.Peek(4096); len(head) > 0 {
		firstLine := head
		if i := bytes.IndexByte(head, '\n'); i >= 0 {
			firstLine = head[:i]
		}
		if bytes.IndexByte(firstLine, '\t') >= 0 {
			comma = '\t'
		}
	}

	cr := csv.NewReader(br)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	g := NewGraph()
	first := true
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read edge list: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if isComment(record) {
			continue
		}

		if first {
			first = false
			if isHeader(record) {
				continue
			}
		}

		if len(record) < 2 {
			return nil, fmt.Errorf("line %d: expected source and target, got %d field(s)", line, len(record))
		}
		source := strings.TrimSpace(record[0])
		target := strings.TrimSpace(record[1])
		if source == "" || target == "" {
			return nil, fmt.Errorf("line %d: empty node id", line)
		}
		g.AddEdge(source, target)
	}

	return g, nil
}

func isHeader(record []string) bool {
	return len(record) >= 2 &&
		strings.EqualFold(strings.TrimSpace(record[0]), "source") &&
		strings.EqualFold(strings.TrimSpace(record[1]), "target")
}

func isComment(record []string) bool {
	return len(record) == 1 && strings.HasPrefix(strings.TrimSpace(record[0]), "#")
}
