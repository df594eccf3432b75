package protocol

import (
	"bytes"
	"io"
)

const (
	// readNoData means no complete line is available yet; the caller should
	// check its deadline and poll again.
	readNoData readOutcome = iota

	// readLine means a complete line was extracted from the buffer.
	readLine
)

// readOutcome distinguishes "nothing yet" from "a line arrived" so the poll
// loop never has to guess from a nil slice.
type readOutcome int

// lineReader accumulates bytes from a connection and hands out complete
// newline-terminated lines one at a time. Serial reads deliver arbitrary
// chunks, so a single Read may complete zero, one or several lines; surplus
// bytes stay buffered for the next call.
type lineReader struct {
	conn io.Reader
	buf  []byte
	tmp  []byte
}

func newLineReader(conn io.Reader) *lineReader {
	return &lineReader{
		conn: conn,
		tmp:  make([]byte, 256),
	}
}

// Next returns the next complete line without its trailing newline. When no
// complete line is buffered it performs one read from the connection. An
// io.EOF from the connection is treated as "no data yet": serial ports with
// a read timeout report it when the wait expires, and the deadline in the
// caller decides when to give up.
func (r *lineReader) Next() ([]byte, readOutcome, error) {
	if line, ok := r.takeLine(); ok {
		return line, readLine, nil
	}

	n, err := r.conn.Read(r.tmp)
	if n > 0 {
		r.buf = append(r.buf, r.tmp[:n]...)
	}
	if err != nil && err != io.EOF {
		return nil, readNoData, err
	}

	if line, ok := r.takeLine(); ok {
		return line, readLine, nil
	}
	return nil, readNoData, nil
}

func (r *lineReader) takeLine() ([]byte, bool) {
	i := bytes.IndexByte(r.buf, '\n')
	if i < 0 {
		return nil, false
	}

	line := r.buf[:i]
	r.buf = r.buf[i+1:]
	return line, true
}
