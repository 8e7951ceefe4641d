// Package stream delivers live chat messages over a server-sent-events
// connection scoped to one room.
package stream

import (
	"bufio"
	"io"
	"strings"
)

// event is a single server-sent event parsed off the wire.
type event struct {
	// Type is the value of the "event:" field, or "" for the default type.
	Type string
	// Data is the payload, joined from one or more "data:" lines.
	Data string
}

// eventScanner reads server-sent events from a response body.
//
// Events are delimited by blank lines; "data:" lines carry the payload and
// "event:" names the type. Comments and unknown fields are ignored, as the
// SSE format requires.
type eventScanner struct {
	reader  *bufio.Reader
	current event
	err     error
}

func newEventScanner(reader io.Reader) *eventScanner {
	return &eventScanner{reader: bufio.NewReaderSize(reader, 32*1024)}
}

// Next advances to the next event, returning false at end of stream or on
// a read error. Err distinguishes the two.
func (s *eventScanner) Next() bool {
	s.current = event{}

	var dataLines []string
	var eventType string
	hasData := false

	for {
		line, err := s.reader.ReadString('\n')

		if err != nil && line == "" {
			if err == io.EOF && hasData {
				// Emit a final event that arrived without a trailing blank line.
				s.current = event{Type: eventType, Data: strings.Join(dataLines, "\n")}
				s.err = io.EOF
				return true
			}
			s.err = err
			return false
		}

		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if hasData {
				s.current = event{Type: eventType, Data: strings.Join(dataLines, "\n")}
				return true
			}
			eventType = ""
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, hasColon := strings.Cut(line, ":")
		if !hasColon {
			field, value = line, ""
		} else {
			// A single leading space after the colon is part of the syntax.
			value = strings.TrimPrefix(value, " ")
		}

		switch field {
		case "data":
			dataLines = append(dataLines, value)
			hasData = true
		case "event":
			eventType = value
		}
	}
}

func (s *eventScanner) Event() event {
	return s.current
}

func (s *eventScanner) Err() error {
	if s.err == io.EOF {
		return nil
	}
	return s.err
}
