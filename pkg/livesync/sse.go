package livesync

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/Dicklesworthstone/canvas_viewer/pkg/model"
)

// DefaultEventName is used for frames without an event: field
const DefaultEventName = "message"

// Decoder reads text/event-stream frames
type Decoder struct {
	r      *bufio.Reader
	lastID string
}

// NewDecoder wraps r
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Decode returns the next dispatched event. Frames without data are
// skipped. A partial frame at end of input is discarded and io.EOF returned.
func (d *Decoder) Decode() (model.StreamEvent, error) {
	var (
		event   string
		data    bytes.Buffer
		hasData bool
	)

	for {
		line, err := d.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return model.StreamEvent{}, io.EOF
			}
			return model.StreamEvent{}, err
		}

		if line == "" {
			if !hasData {
				event = ""
				continue
			}
			if event == "" {
				event = DefaultEventName
			}
			payload := data.Bytes()
			payload = bytes.TrimSuffix(payload, []byte("\n"))
			return model.StreamEvent{ID: d.lastID, Event: event, Data: append([]byte(nil), payload...)}, nil
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, found := strings.Cut(line, ":")
		if found {
			value = strings.TrimPrefix(value, " ")
		}

		switch field {
		case "event":
			event = value
		case "data":
			data.WriteString(value)
			data.WriteByte('\n')
			hasData = true
		case "id":
			if !strings.ContainsRune(value, 0) {
				d.lastID = value
			}
		case "retry":
			// Reconnection is manual.
		}
	}
}

// LastEventID returns the most recent id: field seen
func (d *Decoder) LastEventID() string {
	return d.lastID
}

// readLine returns one line without its terminator (LF, CRLF or CR)
func (d *Decoder) readLine() (string, error) {
	var sb strings.Builder
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) && sb.Len() > 0 {
				// Unterminated final line cannot complete a frame.
				return "", io.EOF
			}
			return "", err
		}
		switch b {
		case '\n':
			return sb.String(), nil
		case '\r':
			if next, err := d.r.Peek(1); err == nil && next[0] == '\n' {
				_, _ = d.r.ReadByte()
			}
			return sb.String(), nil
		default:
			sb.WriteByte(b)
		}
	}
}
