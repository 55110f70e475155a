package daq

import "time"

// ChannelSettings holds the sensitivity metadata enumerated for one
// acquisition channel when a device is added. Entries are created once per
// successful connection and not mutated afterwards. Sensitivity must be
// non-zero; it is a division operand.
type ChannelSettings struct {
	Sensitivity     float64 `json:"sensitivity"`
	SensitivityUnit string  `json:"sensitivity_unit"`
	OutputUnit      string  `json:"unit"`
}

// Frame is one block of samples from a single channel. Raw frames carry
// samples in the unit implied by the sensitivity numerator (typically mV);
// scaled frames carry the channel's output unit.
type Frame struct {
	Channel   int       `json:"channel"`
	Unit      string    `json:"unit,omitempty"`
	Samples   []float64 `json:"samples"`
	Timestamp time.Time `json:"timestamp"`
}

// Device is a handle to an acquisition device added through an Instance.
type Device interface {
	Name() string
	ChannelSettings() map[int]ChannelSettings
	// Read blocks for the next acquisition block and returns one raw frame
	// per enabled channel.
	Read() ([]Frame, error)
	Close() error
}

// Instance is the narrow driver surface the rest of the program depends on:
// it can add a device by connection string. Real drivers open hardware,
// test doubles return fakes.
type Instance interface {
	AddDevice(connectionString string) (Device, error)
}
