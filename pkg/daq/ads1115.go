package daq

import (
	"fmt"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sx-tools/siriusx-to-mqtt/pkg/config"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// ADS1115 register pointers.
const (
	ads1115PointerConv   = 0x00
	ads1115PointerConfig = 0x01

	ads1115DefaultAddr = 0x48
	// full-scale range for the PGA setting used below (±4.096 V)
	ads1115FullScaleV = 4.096
)

// ADS1115Instance opens local I2C ADCs as acquisition devices. The
// connection string selects bus and address: daq.ads1115://2?addr=0x48.
type ADS1115Instance struct {
	cfg    config.Config
	logger *logrus.Logger
}

func NewADS1115Instance(cfg config.Config, logger *logrus.Logger) *ADS1115Instance {
	return &ADS1115Instance{cfg: cfg, logger: logger}
}

func (a *ADS1115Instance) AddDevice(connectionString string) (Device, error) {
	u, err := url.Parse(connectionString)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	addr, err := queryInt(u, "addr", ads1115DefaultAddr)
	if err != nil {
		return nil, err
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	bus, err := i2creg.Open(u.Host)
	if err != nil {
		return nil, fmt.Errorf("open i2c: %w", err)
	}
	a.logger.WithFields(logrus.Fields{"bus": u.Host, "addr": fmt.Sprintf("0x%02X", addr)}).
		Info("ADS1115 opened")

	blockSize := a.cfg.BlockSize
	if blockSize <= 0 {
		blockSize = 1
	}
	return &ADS1115Device{
		name:       connectionString,
		dev:        &i2c.Dev{Addr: uint16(addr), Bus: bus},
		bus:        bus,
		settings:   settingsFromConfig(a.cfg.Channels),
		channels:   enabledChannels(a.cfg.Channels),
		sampleRate: a.cfg.SampleRate,
		blockSize:  blockSize,
	}, nil
}

// ADS1115Device reads single-shot conversions from an ADS1115 and presents
// them as per-channel frames in millivolts.
type ADS1115Device struct {
	name       string
	dev        *i2c.Dev
	bus        i2c.BusCloser
	settings   map[int]ChannelSettings
	channels   []int
	sampleRate int
	blockSize  int
}

func (d *ADS1115Device) Name() string { return d.name }

func (d *ADS1115Device) ChannelSettings() map[int]ChannelSettings { return d.settings }

func (d *ADS1115Device) Read() ([]Frame, error) {
	out := make([]Frame, 0, len(d.channels))
	for _, ch := range d.channels {
		now := time.Now()
		samples := make([]float64, d.blockSize)
		for i := range samples {
			mv, err := d.readSingle(ch)
			if err != nil {
				return nil, err
			}
			samples[i] = mv
		}
		out = append(out, Frame{Channel: ch, Samples: samples, Timestamp: now})
	}
	return out, nil
}

func (d *ADS1115Device) readSingle(channel int) (float64, error) {
	word, err := ads1115ConfigWord(channel, d.sampleRate)
	if err != nil {
		return 0, err
	}
	if err := d.dev.Tx([]byte{ads1115PointerConfig, byte(word >> 8), byte(word & 0xFF)}, nil); err != nil {
		return 0, fmt.Errorf("write config: %w", err)
	}
	// wait out the conversion at the configured data rate
	delayMs := int(1000.0/float64(d.sampleRate)) + 2
	time.Sleep(time.Duration(delayMs) * time.Millisecond)
	readBuf := make([]byte, 2)
	if err := d.dev.Tx([]byte{ads1115PointerConv}, readBuf); err != nil {
		return 0, fmt.Errorf("read conversion: %w", err)
	}
	raw := int16(readBuf[0])<<8 | int16(readBuf[1])
	// raw counts -> millivolts
	return float64(raw) * ads1115FullScaleV / 32768.0 * 1000.0, nil
}

func (d *ADS1115Device) Close() error {
	if d.bus != nil {
		return d.bus.Close()
	}
	return nil
}

// ads1115ConfigWord builds the single-shot config register value for one
// input channel at the given data rate in SPS.
func ads1115ConfigWord(channel, sampleRate int) (uint16, error) {
	var mux uint16
	switch channel {
	case 0:
		mux = 0x4
	case 1:
		mux = 0x5
	case 2:
		mux = 0x6
	case 3:
		mux = 0x7
	default:
		return 0, fmt.Errorf("invalid channel %d", channel)
	}
	var dr uint16
	switch sampleRate {
	case 8:
		dr = 0x0
	case 16:
		dr = 0x1
	case 32:
		dr = 0x2
	case 64:
		dr = 0x3
	case 128:
		dr = 0x4
	case 250:
		dr = 0x5
	case 475:
		dr = 0x6
	case 860:
		dr = 0x7
	default:
		dr = 0x4
	}
	var word uint16 = 0x8000 // OS = 1, start single conversion
	word |= mux << 12
	word |= 0x1 << 9 // PGA ±4.096V
	word |= 1 << 8   // single-shot mode
	word |= dr << 5
	word |= 0x3 // comparator disabled
	return word, nil
}
