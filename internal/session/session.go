// Package session implements the operator-driven lifecycle of one test
// stand run: connect, lock the configuration, initialize the stand, measure,
// visualize and finally save or terminate. The Session owns all mutable run
// state; actions are applied one at a time and every failure leaves the
// machine in its prior state.
package session

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/uav-lab/teststand2-buddy/internal/measure"
	"github.com/uav-lab/teststand2-buddy/internal/protocol"
)

const (
	StateDisconnected State = iota
	StateConnected
	StateLocked
	StateInitialized
	StateMeasured
	StateVisualized
	StateSaved
	StateTerminated
)

// State is the session's position in the strict forward order
// Disconnected → Connected → Locked → Initialized → Measured →
// (Visualized)* → Saved | Terminated. There are no cycles and no skipping.
type State int

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateLocked:
		return "locked"
	case StateInitialized:
		return "initialized"
	case StateMeasured:
		return "measured"
	case StateVisualized:
		return "visualized"
	case StateSaved:
		return "saved"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether the session has ended.
func (s State) Terminal() bool {
	return s == StateSaved || s == StateTerminated
}

var (
	// ErrInvalidConfig wraps all session configuration validation failures.
	ErrInvalidConfig = errors.New("invalid session config")

	// ErrNoPort is returned by a connect attempt without a port selection.
	ErrNoPort = errors.New("no serial port selected")

	// ErrRejected marks a controller-level rejection (ok:false response).
	ErrRejected = errors.New("rejected by controller")

	// ErrMeasureLockout is returned once a measurement has been rejected by
	// the controller; further measurement attempts are disabled for the
	// rest of the session and no command is issued for them.
	ErrMeasureLockout = errors.New("measurement disabled after a rejected measurement")
)

// TransitionError reports an action attempted from a state whose guard
// rejects it.
type TransitionError struct {
	Action string
	State  State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Action, e.State)
}

// Config is the operator-supplied session configuration. It is validated
// and copied into the session at lock time and immutable afterwards.
type Config struct {
	Name        string  // Session name, used for the saved directory
	Resolution  int     // Number of throttle steps, 10 or 20
	OutputScale float64 // Throttle cap multiplier in [0.1, 1.0]
	StorageDir  string  // Existing directory saved sessions go under
}

// Validate checks the lock-time invariants. All failures wrap
// ErrInvalidConfig.
func (c Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidConfig)
	}
	if c.Resolution != 10 && c.Resolution != 20 {
		return fmt.Errorf("%w: resolution must be 10 or 20, got %d", ErrInvalidConfig, c.Resolution)
	}
	if c.OutputScale < 0.1 || c.OutputScale > 1.0 {
		return fmt.Errorf("%w: output scale must be within [0.1, 1.0], got %g", ErrInvalidConfig, c.OutputScale)
	}
	stat, err := os.Stat(c.StorageDir)
	if err != nil {
		return fmt.Errorf("%w: storage dir %q: %v", ErrInvalidConfig, c.StorageDir, err)
	}
	if !stat.IsDir() {
		return fmt.Errorf("%w: storage dir %q is not a directory", ErrInvalidConfig, c.StorageDir)
	}
	return nil
}

// Transport opens the serial connection to the stand controller. A
// connection lives for exactly one command exchange.
type Transport interface {
	Probe(port string) error
	Open(port string) (io.ReadWriteCloser, error)
}

// Commander performs one blocking command/response exchange.
type Commander interface {
	Send(conn io.ReadWriter, cmd protocol.Command) (*protocol.Response, error)
}

// Visualizer turns a measurement result into a chart artifact (PNG bytes).
type Visualizer interface {
	Render(cfg Config, result measure.Result) ([]byte, error)
}

// Persister writes the locked config, raw records and chart artifact to a
// timestamped session directory and returns its path.
type Persister interface {
	Write(cfg Config, result measure.Result, chart []byte, now time.Time) (string, error)
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) func(*Session) {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithClock replaces the wall clock used for the saved directory timestamp.
func WithClock(now func() time.Time) func(*Session) {
	return func(s *Session) {
		s.now = now
	}
}

// Session is the single in-process run context. It is not safe for
// concurrent use and is not meant to be: one operator action is processed
// to completion before the next is accepted.
type Session struct {
	state          State
	port           string
	config         *Config
	result         measure.Result
	chart          []byte
	measureLockout bool

	transport  Transport
	commander  Commander
	visualizer Visualizer
	persister  Persister
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a session in the Disconnected state.
func New(transport Transport, commander Commander, visualizer Visualizer, persister Persister, options ...func(*Session)) *Session {
	s := Session{
		state:      StateDisconnected,
		transport:  transport,
		commander:  commander,
		visualizer: visualizer,
		persister:  persister,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:        time.Now,
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

// State returns the current session state.
func (s *Session) State() State { return s.state }

// Port returns the connected serial port name, if any.
func (s *Session) Port() string { return s.port }

// Config returns a copy of the locked configuration, or nil before lock.
func (s *Session) Config() *Config {
	if s.config == nil {
		return nil
	}
	c := *s.config
	return &c
}

// Result returns the current measurement result. It is replaced wholesale
// by each successful measurement and must not be mutated by callers.
func (s *Session) Result() measure.Result { return s.result }

// Chart returns the most recent chart artifact, or nil before the first
// visualization pass.
func (s *Session) Chart() []byte { return s.chart }

// MeasureLocked reports whether the one-way measurement lockout is active.
func (s *Session) MeasureLocked() bool { return s.measureLockout }

// Connect probes the chosen port and binds the session to it. A transport
// failure is reported and leaves the session Disconnected; the operator may
// pick another port and try again.
func (s *Session) Connect(port string) error {
	if s.state != StateDisconnected {
		return &TransitionError{Action: "connect", State: s.state}
	}
	if port == "" {
		return ErrNoPort
	}

	if err := s.transport.Probe(port); err != nil {
		return fmt.Errorf("connecting to %s: %w", port, err)
	}

	s.port = port
	s.state = StateConnected
	s.logger.Info("serial connection ok", slog.String("port", port))
	return nil
}

// Lock validates and freezes the session configuration. A validation
// failure leaves the session Connected so the operator can correct the
// input and resubmit.
func (s *Session) Lock(cfg Config) error {
	if s.state != StateConnected {
		return &TransitionError{Action: "lock", State: s.state}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.config = &cfg
	s.state = StateLocked
	s.logger.Info("session config locked",
		slog.String("name", cfg.Name),
		slog.Int("resolution", cfg.Resolution),
		slog.Float64("outputScale", cfg.OutputScale))
	return nil
}

// Initialize sends the sys_init command. Timeout and rejection both leave
// the session Locked; initialization may be retried.
func (s *Session) Initialize() error {
	if s.state != StateLocked {
		return &TransitionError{Action: "initialize", State: s.state}
	}

	resp, err := s.exchange(protocol.SysInit())
	if err != nil {
		return fmt.Errorf("system initialization: %w", err)
	}
	if !resp.OK {
		return fmt.Errorf("system initialization: %w", ErrRejected)
	}

	s.state = StateInitialized
	s.logger.Info("system initialized")
	return nil
}

// Measure sends the measure command with the locked resolution and output
// scale. On success the result replaces any previous one and a
// visualization pass runs automatically. A rejection (ok:false) permanently
// disables further measurement attempts for this session; a timeout or
// transport failure leaves the stand Initialized and may be retried.
func (s *Session) Measure() error {
	if s.state != StateInitialized {
		return &TransitionError{Action: "measure", State: s.state}
	}
	if s.measureLockout {
		return ErrMeasureLockout
	}

	resp, err := s.exchange(protocol.Measure(s.config.Resolution, s.config.OutputScale))
	if err != nil {
		return fmt.Errorf("measurement: %w", err)
	}
	if !resp.OK {
		s.measureLockout = true
		return fmt.Errorf("measurement: %w", ErrRejected)
	}

	s.result = resp.Data
	s.state = StateMeasured
	s.logger.Info("measurement complete", slog.Int("records", len(s.result)))

	if err = s.Visualize(); err != nil {
		// The measurement itself succeeded; the chart can be re-rendered
		// with an explicit visualize action.
		return fmt.Errorf("rendering measurement: %w", err)
	}
	return nil
}

// Visualize renders the existing measurement result. It is re-entrant: it
// may run any number of times and always produces the same artifact for the
// same result.
func (s *Session) Visualize() error {
	if s.state != StateMeasured && s.state != StateVisualized {
		return &TransitionError{Action: "visualize", State: s.state}
	}

	chart, err := s.visualizer.Render(*s.config, s.result)
	if err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}

	s.chart = chart
	s.state = StateVisualized
	return nil
}

// Save persists the session to a timestamped directory under the locked
// storage dir and ends the session. A persistence failure leaves the
// session in its prior state.
func (s *Session) Save() (string, error) {
	if s.state != StateMeasured && s.state != StateVisualized {
		return "", &TransitionError{Action: "save", State: s.state}
	}

	dir, err := s.persister.Write(*s.config, s.result, s.chart, s.now())
	if err != nil {
		return "", fmt.Errorf("saving session: %w", err)
	}

	s.state = StateSaved
	s.logger.Info("session saved", slog.String("dir", dir))
	return dir, nil
}

// Terminate ends the session from any non-terminal state, discarding all
// in-memory state without persisting anything. The operator confirmation
// gate lives in the caller.
func (s *Session) Terminate() error {
	if s.state.Terminal() {
		return &TransitionError{Action: "terminate", State: s.state}
	}

	s.state = StateTerminated
	s.port = ""
	s.config = nil
	s.result = nil
	s.chart = nil
	s.logger.Info("session terminated without saving")
	return nil
}

// exchange opens the port, performs one command/response round trip and
// closes the port again. Connections are never pooled or kept alive.
func (s *Session) exchange(cmd protocol.Command) (*protocol.Response, error) {
	conn, err := s.transport.Open(s.port)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	return s.commander.Send(conn, cmd)
}
