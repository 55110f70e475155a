// Package scaling converts raw acquisition-channel voltages into physical
// engineering units using per-channel sensor sensitivity.
package scaling

import (
	"fmt"
	"strings"

	"github.com/sx-tools/siriusx-to-mqtt/pkg/daq"
)

// StandardGravity converts between g and m/s^2.
const StandardGravity = 9.81

// Converter rescales raw signals using a per-channel settings table. The
// table is fixed at construction; Converter itself holds no other state.
type Converter struct {
	settings map[int]daq.ChannelSettings
}

func NewConverter(settings map[int]daq.ChannelSettings) *Converter {
	return &Converter{settings: settings}
}

// Settings returns the channel settings entry for a channel index.
func (c *Converter) Settings(channel int) (daq.ChannelSettings, bool) {
	s, ok := c.settings[channel]
	return s, ok
}

// Apply divides every sample by the channel's sensitivity and converts the
// result into the channel's output unit. Division by the sensitivity turns
// raw millivolt-scale readings into the sensitivity denominator's unit
// (mV/g -> g, V/V -> V, mV/Pa -> Pa); the only cross-unit rule after that is
// g <-> m/s^2 via StandardGravity, everything else passes through scaled.
// A fresh slice is returned; the input is never mutated.
func (c *Converter) Apply(channel int, signal []float64) ([]float64, error) {
	st, ok := c.settings[channel]
	if !ok {
		return nil, fmt.Errorf("no channel settings for channel %d", channel)
	}
	if st.Sensitivity == 0 {
		return nil, fmt.Errorf("channel %d: sensitivity must be non-zero", channel)
	}

	scaled := make([]float64, len(signal))
	for i, v := range signal {
		scaled[i] = v / st.Sensitivity
	}

	from := Denominator(st.SensitivityUnit)
	to := strings.TrimSpace(st.OutputUnit)
	switch {
	case from == "g" && to == "m/s^2":
		for i := range scaled {
			scaled[i] *= StandardGravity
		}
	case from == "m/s^2" && to == "g":
		for i := range scaled {
			scaled[i] /= StandardGravity
		}
	}
	return scaled, nil
}

// Denominator extracts the physical unit after the first top-level slash of
// a sensitivity unit string, trimming surrounding parentheses:
// "mV/(m/s^2)" yields "m/s^2", not the tail of a naive split on every
// slash. Malformed input degrades to a best-effort answer, never an error.
func Denominator(sensitivityUnit string) string {
	s := strings.TrimSpace(sensitivityUnit)
	depth := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case '/':
			if depth == 0 {
				return trimParens(s[i+1:])
			}
		}
	}
	return trimParens(s)
}

func trimParens(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '(' && s[len(s)-1] == ')' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
