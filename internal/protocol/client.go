package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

const (
	// DefaultSysInitTimeout bounds the hardware self-test. Initialization
	// spins the motor briefly and settles the load cell, hence the margin.
	DefaultSysInitTimeout = 25 * time.Second

	// DefaultMeasureTimeout bounds a full throttle sweep across all steps.
	DefaultMeasureTimeout = 120 * time.Second

	defaultPollInterval = 10 * time.Millisecond
)

// ErrTimeout is returned by Send when no valid matching response arrives
// before the per-command deadline.
var ErrTimeout = errors.New("no matching response before deadline")

// WithLogger sets the logger used for skipped-line diagnostics.
func WithLogger(logger *slog.Logger) func(*Client) {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithClock replaces the wall clock used for deadline checks.
func WithClock(now func() time.Time) func(*Client) {
	return func(c *Client) {
		c.now = now
	}
}

// WithTimeout overrides the response ceiling for one command type.
func WithTimeout(t CommandType, d time.Duration) func(*Client) {
	return func(c *Client) {
		c.timeouts[t] = d
	}
}

// WithPollInterval sets the pause between read attempts while waiting for
// a response. Zero disables the pause.
func WithPollInterval(d time.Duration) func(*Client) {
	return func(c *Client) {
		c.pollInterval = d
	}
}

// Client performs blocking command/response exchanges over a line-oriented
// JSON protocol. One command is in flight at a time; the caller owns the
// connection for the duration of a Send and opens/closes it around the call.
type Client struct {
	timeouts     map[CommandType]time.Duration
	pollInterval time.Duration
	now          func() time.Time
	logger       *slog.Logger
}

// NewClient creates a protocol client with default per-command timeouts and
// a discard logger.
func NewClient(options ...func(*Client)) *Client {
	c := Client{
		timeouts: map[CommandType]time.Duration{
			CommandSysInit: DefaultSysInitTimeout,
			CommandMeasure: DefaultMeasureTimeout,
		},
		pollInterval: defaultPollInterval,
		now:          time.Now,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&c)
	}

	return &c
}

// Send writes cmd as a newline-terminated JSON object and blocks reading
// lines until a reply whose response_type matches the command type arrives,
// or the command's timeout ceiling elapses.
//
// Lines that are not valid JSON objects, or that carry a different
// response_type, are skipped and reading continues. A write failure is a
// transport error and is returned immediately. Timeout is reported as
// ErrTimeout; a protocol-level rejection (ok:false) is not an error here
// and is surfaced through the returned Response.
func (c *Client) Send(conn io.ReadWriter, cmd Command) (*Response, error) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("encoding command: %w", err)
	}
	payload = append(payload, '\n')

	if _, err = conn.Write(payload); err != nil {
		return nil, fmt.Errorf("writing command: %w", err)
	}

	deadline := c.now().Add(c.timeouts[cmd.Type])
	lines := newLineReader(conn)

	for {
		if c.now().After(deadline) {
			return nil, ErrTimeout
		}

		line, outcome, err := lines.Next()
		if err != nil {
			return nil, fmt.Errorf("reading response: %w", err)
		}
		if outcome == readNoData {
			if c.pollInterval > 0 {
				time.Sleep(c.pollInterval)
			}
			continue
		}

		resp, ok := c.parseLine(line, cmd.Type)
		if !ok {
			continue
		}
		return resp, nil
	}
}

// parseLine attempts to decode a received line as the reply to the
// outstanding command. It reports false for noise: malformed JSON, non-object
// payloads and responses addressed to a different command type.
func (c *Client) parseLine(line []byte, want CommandType) (*Response, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] != '{' {
		c.logger.Debug("skipping non-object line", slog.Int("bytes", len(line)))
		return nil, false
	}

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		c.logger.Debug("skipping malformed line", slog.String("error", err.Error()))
		return nil, false
	}
	if resp.Type != string(want) {
		c.logger.Debug("skipping mismatched response",
			slog.String("want", string(want)),
			slog.String("got", resp.Type))
		return nil, false
	}

	return &resp, true
}

// Timeout returns the response ceiling configured for the given command type.
func (c *Client) Timeout(t CommandType) time.Duration {
	return c.timeouts[t]
}
