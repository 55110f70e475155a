package console

import (
	"fmt"
	"strings"
	"time"

	"github.com/sx-tools/siriusx-to-mqtt/pkg/daq"
	"github.com/sx-tools/siriusx-to-mqtt/pkg/output"
)

type ConsoleOutput struct{}

func NewConsole() output.Output { return &ConsoleOutput{} }

func (c *ConsoleOutput) Publish(frames []daq.Frame) error {
	for _, f := range frames {
		fmt.Printf("%s channel=%d unit=%s samples=[%s]\n",
			f.Timestamp.Format(time.RFC3339), f.Channel, f.Unit, formatSamples(f.Samples))
	}
	return nil
}

func (c *ConsoleOutput) Close() error { return nil }

func formatSamples(samples []float64) string {
	parts := make([]string, len(samples))
	for i, s := range samples {
		parts[i] = fmt.Sprintf("%.6f", s)
	}
	return strings.Join(parts, " ")
}
