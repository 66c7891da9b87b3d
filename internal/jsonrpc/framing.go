package jsonrpc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const contentLengthHeader = "Content-Length"

// maxContentLength bounds a single frame so a corrupt header cannot make the
// reader allocate without limit.
const maxContentLength = 64 << 20

// FrameReader reads LSP base-protocol frames: a block of "Name: value" header
// lines terminated by an empty line, followed by Content-Length bytes of JSON.
type FrameReader struct {
	r *bufio.Reader
}

// NewFrameReader wraps r in a buffered frame reader.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: bufio.NewReader(r)}
}

// Read returns the payload of the next frame. It returns io.EOF when the
// stream ends cleanly between frames and io.ErrUnexpectedEOF when it ends
// inside one. Malformed headers are reported as *ProtocolError.
func (fr *FrameReader) Read() ([]byte, error) {
	length := -1
	first := true
	for {
		line, err := fr.r.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				if first && line == "" {
					return nil, io.EOF
				}
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		first = false
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, Protocolf("malformed header line %q", line)
		}
		if !strings.EqualFold(strings.TrimSpace(name), contentLengthHeader) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return nil, Protocolf("invalid %s %q", contentLengthHeader, strings.TrimSpace(value))
		}
		if n > maxContentLength {
			return nil, Protocolf("%s %d exceeds limit", contentLengthHeader, n)
		}
		length = n
	}
	if length < 0 {
		return nil, Protocolf("missing %s header", contentLengthHeader)
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(fr.r, buf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf, nil
}

// FrameWriter writes LSP base-protocol frames. It is not safe for concurrent
// use; the transport serializes writes through a single goroutine.
type FrameWriter struct {
	w *bufio.Writer
}

// NewFrameWriter wraps w in a buffered frame writer.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: bufio.NewWriter(w)}
}

// Write encodes msg and writes it as a single frame, flushing afterwards.
func (fw *FrameWriter) Write(msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if _, err := fmt.Fprintf(fw.w, "%s: %d\r\n\r\n", contentLengthHeader, len(body)); err != nil {
		return err
	}
	if _, err := fw.w.Write(body); err != nil {
		return err
	}
	return fw.w.Flush()
}
