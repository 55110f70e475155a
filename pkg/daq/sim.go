package daq

import (
	"math"
	"sync"
	"time"

	"github.com/sx-tools/siriusx-to-mqtt/pkg/config"
)

// SimInstance produces simulated devices for running without hardware.
type SimInstance struct {
	channels  []config.ChannelConfig
	blockSize int
}

func NewSimInstance(channels []config.ChannelConfig, blockSize int) *SimInstance {
	if blockSize <= 0 {
		blockSize = 1
	}
	return &SimInstance{channels: channels, blockSize: blockSize}
}

func (i *SimInstance) AddDevice(connectionString string) (Device, error) {
	return &SimDevice{
		name:      connectionString,
		settings:  settingsFromConfig(i.channels),
		channels:  enabledChannels(i.channels),
		blockSize: i.blockSize,
	}, nil
}

// SimDevice emits a deterministic 1 Hz sine per channel with 100 mV
// amplitude, phase-shifted by channel index so channels are tellable apart.
type SimDevice struct {
	name      string
	settings  map[int]ChannelSettings
	channels  []int
	blockSize int

	mu    sync.Mutex
	block int
}

func (d *SimDevice) Name() string { return d.name }

func (d *SimDevice) ChannelSettings() map[int]ChannelSettings { return d.settings }

func (d *SimDevice) Read() ([]Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	out := make([]Frame, 0, len(d.channels))
	for _, ch := range d.channels {
		samples := make([]float64, d.blockSize)
		for i := range samples {
			t := float64(d.block*d.blockSize+i) / float64(d.blockSize)
			samples[i] = 100.0 * math.Sin(2*math.Pi*t+float64(ch))
		}
		out = append(out, Frame{Channel: ch, Samples: samples, Timestamp: now})
	}
	d.block++
	return out, nil
}

func (d *SimDevice) Close() error { return nil }
