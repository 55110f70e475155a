package daq

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	serial "github.com/jacobsa/go-serial/serial"
	"github.com/sirupsen/logrus"
	"github.com/sx-tools/siriusx-to-mqtt/pkg/config"
)

// SerialInstance opens line-framed serial acquisition frontends. The
// connection string names port and baud rate: daq.serial:///dev/ttyUSB0?baud=115200.
// Each line on the wire is one sample per enabled channel, comma separated,
// in millivolts: "12.5,3.3,-0.1".
type SerialInstance struct {
	channels []config.ChannelConfig
	logger   *logrus.Logger
}

func NewSerialInstance(channels []config.ChannelConfig, logger *logrus.Logger) *SerialInstance {
	return &SerialInstance{channels: channels, logger: logger}
}

func (s *SerialInstance) AddDevice(connectionString string) (Device, error) {
	u, err := url.Parse(connectionString)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	baud, err := queryInt(u, "baud", 115200)
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(serial.OpenOptions{
		PortName:        u.Path,
		BaudRate:        uint(baud),
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", u.Path, err)
	}
	s.logger.WithFields(logrus.Fields{"port": u.Path, "baud": baud}).Info("serial port opened")

	return &SerialDevice{
		name:     connectionString,
		port:     port,
		reader:   bufio.NewReader(port),
		settings: settingsFromConfig(s.channels),
		channels: enabledChannels(s.channels),
	}, nil
}

// SerialDevice turns one line of comma-separated values into one
// single-sample frame per enabled channel.
type SerialDevice struct {
	name     string
	port     io.ReadWriteCloser
	reader   *bufio.Reader
	settings map[int]ChannelSettings
	channels []int
}

func (d *SerialDevice) Name() string { return d.name }

func (d *SerialDevice) ChannelSettings() map[int]ChannelSettings { return d.settings }

func (d *SerialDevice) Read() ([]Frame, error) {
	line, err := d.reader.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("serial read: %w", err)
	}
	values, err := parseFrameLine(line)
	if err != nil {
		return nil, err
	}
	if len(values) < len(d.channels) {
		return nil, fmt.Errorf("frame has %d values, want %d", len(values), len(d.channels))
	}
	now := time.Now()
	out := make([]Frame, 0, len(d.channels))
	for i, ch := range d.channels {
		out = append(out, Frame{Channel: ch, Samples: []float64{values[i]}, Timestamp: now})
	}
	return out, nil
}

func (d *SerialDevice) Close() error { return d.port.Close() }

// parseFrameLine splits a CSV sample line into float values. Empty fields
// and surrounding whitespace are rejected, not skipped: a mangled frame
// should surface as an error rather than shift channels silently.
func parseFrameLine(line string) ([]float64, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, fmt.Errorf("empty frame line")
	}
	parts := strings.Split(line, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid sample %q: %w", strings.TrimSpace(p), err)
		}
		out = append(out, v)
	}
	return out, nil
}
