package protocol

import (
	"github.com/uav-lab/teststand2-buddy/internal/measure"
)

const (
	// CommandSysInit asks the controller to run its hardware self-test and
	// arm the stand.
	CommandSysInit CommandType = "sys_init"

	// CommandMeasure asks the controller to sweep the configured throttle
	// steps and report one record per step.
	CommandMeasure CommandType = "measure"
)

// CommandType identifies an outbound command. The controller echoes it back
// as the response_type of the matching reply.
type CommandType string

// Command is one outbound request, serialized as a single JSON line.
// Steps and ThrottleScale are only meaningful for CommandMeasure.
type Command struct {
	Type          CommandType `json:"command_type"`
	Steps         int         `json:"steps,omitempty"`
	ThrottleScale float64     `json:"throttle_scale,omitempty"`
}

// Response is one inbound reply. Data is present only on a successful
// measure response.
type Response struct {
	Type string           `json:"response_type"`
	OK   bool             `json:"ok"`
	Data []measure.Record `json:"data,omitempty"`
}

// SysInit builds an initialization command.
func SysInit() Command {
	return Command{Type: CommandSysInit}
}

// Measure builds a measurement command for the given number of throttle
// steps and output scale.
func Measure(steps int, throttleScale float64) Command {
	return Command{
		Type:          CommandMeasure,
		Steps:         steps,
		ThrottleScale: throttleScale,
	}
}
