package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/dustin/go-humanize"
	"github.com/eiannone/keyboard"

	"github.com/uav-lab/teststand2-buddy/internal/protocol"
	"github.com/uav-lab/teststand2-buddy/internal/serialport"
	"github.com/uav-lab/teststand2-buddy/internal/session"
	"github.com/uav-lab/teststand2-buddy/internal/storage"
)

const (
	previewDir  = "temp"
	previewFile = "visualized.png"
)

var initWarning = []string{
	"Before initializing the system, please ensure:",
	"- The power is correctly connected.",
	"- The prop and motor are correctly mounted.",
	"- There are no people or obstacles around the teststand.",
	"Proceed only if all safety checks are confirmed.",
}

var measureWarning = []string{
	"Before taking a measurement, please ensure:",
	"- The power is correctly connected.",
	"- The prop and motor are correctly mounted.",
	"- There are no people or obstacles around the teststand.",
	"Proceed only if all safety checks are confirmed.",
}

var terminateWarning = []string{
	"Are you sure you want to TERMINATE this program?",
	"The recorded data will NOT be saved.",
}

// console drives the session with single-key menu choices and line input,
// one operator action at a time.
type console struct {
	config *Config
	client *protocol.Client
	logger *slog.Logger
	stdin  *bufio.Scanner
}

func newConsole(config *Config, client *protocol.Client, logger *slog.Logger) *console {
	return &console{
		config: config,
		client: client,
		logger: logger,
		stdin:  bufio.NewScanner(os.Stdin),
	}
}

// Run processes operator actions until the session reaches a terminal
// state or the context is cancelled. Cancellation discards the session
// without writing anything, same as an explicit termination.
func (c *console) Run(ctx context.Context, sess *session.Session) error {
	greenf("UAV's Teststand2 Buddy | Baud: %d\n", c.config.Serial.BaudRate)

	for !sess.State().Terminal() {
		if ctx.Err() != nil {
			_ = sess.Dispatch(session.Terminate{})
			return nil
		}

		c.printStatus(sess)
		key, err := readKey()
		if err != nil {
			return fmt.Errorf("reading key: %w", err)
		}

		switch key {
		case 'c':
			c.report(c.connect(sess))
		case 'l':
			c.report(c.lock(sess))
		case 'i':
			if c.confirm(initWarning, "Sys Init", c.client.Timeout(protocol.CommandSysInit)) {
				c.report(sess.Dispatch(session.Initialize{}))
			}
		case 'm':
			if c.confirm(measureWarning, "Measure", c.client.Timeout(protocol.CommandMeasure)) {
				err = sess.Dispatch(session.Measure{})
				c.writePreview(sess)
				c.report(err)
			}
		case 'v':
			err = sess.Dispatch(session.Visualize{})
			c.writePreview(sess)
			c.report(err)
		case 's':
			c.report(c.save(ctx, sess))
		case 'h':
			c.report(c.history(ctx, sess))
		case 't':
			if c.confirm(terminateWarning, "Terminate", 0) {
				c.report(sess.Dispatch(session.Terminate{}))
			}
		}
	}

	return nil
}

// printStatus shows the session state and the keys legal from it.
func (c *console) printStatus(sess *session.Session) {
	fmt.Println()
	greenf("[%s]", sess.State())
	if port := sess.Port(); port != "" {
		fmt.Printf(" port=%s", port)
	}
	if cfg := sess.Config(); cfg != nil {
		fmt.Printf(" session=%q resolution=%d scale=%g", cfg.Name, cfg.Resolution, cfg.OutputScale)
	}
	if sess.MeasureLocked() {
		warnf(" (measurement disabled)")
	}
	fmt.Println()

	var keys []string
	switch sess.State() {
	case session.StateDisconnected:
		keys = append(keys, "[C]onnect")
	case session.StateConnected:
		keys = append(keys, "[L]ock session info")
	case session.StateLocked:
		keys = append(keys, "[I]nit system")
	case session.StateInitialized:
		if !sess.MeasureLocked() {
			keys = append(keys, "[M]easure")
		}
	case session.StateMeasured, session.StateVisualized:
		keys = append(keys, "[V]isualize", "[S]ave & exit")
	}
	if sess.Config() != nil {
		keys = append(keys, "[H]istory")
	}
	keys = append(keys, "[T]erminate")
	fmt.Printf("%s > ", strings.Join(keys, "  "))
}

func (c *console) connect(sess *session.Session) error {
	port := c.config.Serial.Port
	if port == "" {
		ports := serialport.ListPorts()
		if len(ports) == 0 {
			return errors.New("no serial ports found")
		}

		fmt.Println("\nAvailable ports:")
		for i, name := range ports {
			fmt.Printf("  %d) %s\n", i+1, name)
		}
		choice := c.prompt("Port number", "1")
		i, err := strconv.Atoi(choice)
		if err != nil || i < 1 || i > len(ports) {
			return fmt.Errorf("invalid port selection %q", choice)
		}
		port = ports[i-1]
	}

	return sess.Dispatch(session.Connect{Port: port})
}

func (c *console) lock(sess *session.Session) error {
	fmt.Println()
	name := c.prompt("Session name", "")
	resolution, err := strconv.Atoi(c.prompt("Resolution (10 or 20)", "10"))
	if err != nil {
		return fmt.Errorf("%w: resolution must be a number", session.ErrInvalidConfig)
	}
	scale, err := strconv.ParseFloat(c.prompt("Output scaling (0.1 .. 1.0)", "1.0"), 64)
	if err != nil {
		return fmt.Errorf("%w: output scaling must be a number", session.ErrInvalidConfig)
	}
	dir := c.prompt("Storage dir", c.config.Storage.DataDirectory)

	return sess.Dispatch(session.Lock{Config: session.Config{
		Name:        name,
		Resolution:  resolution,
		OutputScale: scale,
		StorageDir:  dir,
	}})
}

// save persists the session, records it in the run index and reports the
// artifact sizes.
func (c *console) save(ctx context.Context, sess *session.Session) error {
	cfg := sess.Config()
	records := len(sess.Result())
	chartSize := len(sess.Chart())

	dir, err := sess.Save()
	if err != nil {
		return err
	}

	index := storage.NewRunIndex(filepath.Join(cfg.StorageDir, c.config.Storage.IndexFile))
	defer func() { _ = index.Close() }()
	if _, err = index.RecordSavedSession(ctx, *cfg, records, dir, time.Now()); err != nil {
		// Indexing failure is not fatal; the session directory is complete.
		c.logger.Warn("failed to index saved session", slog.String("error", err.Error()))
	}

	greenf("Saved %s records to %s (chart %s)\n",
		humanize.Comma(int64(records)), dir, humanize.Bytes(uint64(chartSize)))
	return nil
}

// history lists the runs previously saved under the locked storage
// directory, read back from the run index.
func (c *console) history(ctx context.Context, sess *session.Session) error {
	cfg := sess.Config()
	if cfg == nil {
		return errors.New("no session info locked yet")
	}

	index := storage.NewRunIndex(filepath.Join(cfg.StorageDir, c.config.Storage.IndexFile))
	defer func() { _ = index.Close() }()

	return printHistory(ctx, os.Stdout, index)
}

// printHistory writes one line per indexed run, oldest first.
func printHistory(ctx context.Context, w io.Writer, index *storage.RunIndex) error {
	runs, err := index.SavedSessions(ctx)
	if err != nil {
		return fmt.Errorf("reading run index: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No saved runs yet.")
		return nil
	}

	for _, run := range runs {
		fmt.Fprintf(w, "%4d  %s  %-20s resolution=%d scale=%g records=%s  %s\n",
			run.ID, run.SavedAt.Local().Format("2006-01-02 15:04"), run.Name,
			run.Resolution, run.OutputScale, humanize.Comma(int64(run.Records)), run.Directory)
	}
	return nil
}

// writePreview mirrors the latest chart artifact to temp/visualized.png so
// the operator can open it while the session is still running.
func (c *console) writePreview(sess *session.Session) {
	chart := sess.Chart()
	if len(chart) == 0 {
		return
	}

	if err := os.MkdirAll(previewDir, 0o755); err != nil {
		c.logger.Warn("failed to create preview dir", slog.String("error", err.Error()))
		return
	}
	path := filepath.Join(previewDir, previewFile)
	if err := os.WriteFile(path, chart, 0o644); err != nil {
		c.logger.Warn("failed to write chart preview", slog.String("error", err.Error()))
		return
	}
	fmt.Printf("Chart written to %s\n", path)
}

// report surfaces an action outcome to the operator. Every failure is
// acknowledged with a key press before the menu returns.
func (c *console) report(err error) {
	fmt.Println()
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, protocol.ErrTimeout):
		redf("Timeout: %s\n", err)
	case errors.Is(err, session.ErrRejected):
		redf("Rejected: %s\n", err)
	case errors.Is(err, session.ErrMeasureLockout):
		redf("Measurement is disabled for the rest of this session.\n")
	case errors.Is(err, session.ErrInvalidConfig):
		warnf("%s\n", err)
	default:
		redf("%s\n", err)
	}

	fmt.Print("Press any key to continue...")
	_, _ = readKey()
	fmt.Println()
}

// confirm prints a warning block and waits for a single Y to proceed. A
// non-zero ceiling tells the operator how long the stand may take to
// respond once the action is confirmed.
func (c *console) confirm(lines []string, action string, ceiling time.Duration) bool {
	fmt.Println()
	for _, line := range lines {
		warnf("%s\n", line)
	}
	if ceiling > 0 {
		fmt.Printf("The stand has up to %s to respond.\n", ceiling)
	}
	fmt.Printf("Press 'Y' to %s, any other key to abort > ", action)

	key, err := readKey()
	fmt.Println()
	return err == nil && key == 'y'
}

// prompt reads one line of input, returning fallback on empty input.
func (c *console) prompt(label, fallback string) string {
	if fallback != "" {
		fmt.Printf("%s [%s]: ", label, fallback)
	} else {
		fmt.Printf("%s: ", label)
	}

	if !c.stdin.Scan() {
		return fallback
	}
	value := strings.TrimSpace(c.stdin.Text())
	if value == "" {
		return fallback
	}
	return value
}

// readKey reads a single lowercase key without waiting for Enter.
func readKey() (rune, error) {
	char, key, err := keyboard.GetSingleKey()
	if err != nil {
		return 0, err
	}
	if key == keyboard.KeyEsc {
		return 27, nil
	}
	return unicode.ToLower(char), nil
}

func greenf(format string, a ...any) {
	fmt.Print("\033[92m")
	fmt.Printf(format, a...)
	fmt.Print("\033[0m")
}

func warnf(format string, a ...any) {
	fmt.Print("\033[93m")
	fmt.Printf(format, a...)
	fmt.Print("\033[0m")
}

func redf(format string, a ...any) {
	fmt.Print("\033[31m")
	fmt.Printf(format, a...)
	fmt.Print("\033[0m")
}
