package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/uav-lab/teststand2-buddy/internal/chart"
	"github.com/uav-lab/teststand2-buddy/internal/measure"
	"github.com/uav-lab/teststand2-buddy/internal/protocol"
	"github.com/uav-lab/teststand2-buddy/internal/serialport"
	"github.com/uav-lab/teststand2-buddy/internal/session"
	"github.com/uav-lab/teststand2-buddy/internal/storage"
)

// Run wires the serial transport, protocol client, chart renderer and
// session writer into a session and hands it to the console loop.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	dialer := serialport.NewDialer(config.Serial.BaudRate)

	client := protocol.NewClient(
		protocol.WithLogger(logger),
		protocol.WithTimeout(protocol.CommandSysInit, config.SysInitTimeout()),
		protocol.WithTimeout(protocol.CommandMeasure, config.MeasureTimeout()),
	)

	renderer, err := chart.NewRenderer(chart.Config{FontFile: config.Chart.FontFile})
	if err != nil {
		return fmt.Errorf("creating chart renderer: %w", err)
	}

	sess := session.New(
		dialer,
		client,
		chartVisualizer{renderer},
		storage.NewSessionWriter(),
		session.WithLogger(logger),
	)

	return newConsole(config, client, logger).Run(ctx, sess)
}

// chartVisualizer adapts the chart renderer to the session's Visualizer
// collaborator.
type chartVisualizer struct {
	renderer *chart.Renderer
}

func (v chartVisualizer) Render(cfg session.Config, result measure.Result) ([]byte, error) {
	return v.renderer.RenderPNG(cfg.Name, cfg.OutputScale, result)
}
