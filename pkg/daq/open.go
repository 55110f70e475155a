package daq

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/sx-tools/siriusx-to-mqtt/pkg/config"
)

// Driver connection-string schemes. The URI stays opaque above this package;
// only the scheme is inspected to route to a driver.
const (
	SchemeSim     = "daq.sim"
	SchemeADS1115 = "daq.ads1115"
	SchemeSerial  = "daq.serial"
)

// Open returns the driver Instance for the connection string's scheme. The
// returned Instance has not touched hardware yet; that happens in AddDevice.
func Open(connectionString string, cfg config.Config, logger *logrus.Logger) (Instance, error) {
	u, err := url.Parse(connectionString)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	switch u.Scheme {
	case SchemeSim:
		return NewSimInstance(cfg.Channels, cfg.BlockSize), nil
	case SchemeADS1115:
		return NewADS1115Instance(cfg, logger), nil
	case SchemeSerial:
		return NewSerialInstance(cfg.Channels, logger), nil
	}
	return nil, fmt.Errorf("unsupported connection scheme %q", u.Scheme)
}

// settingsFromConfig builds the per-channel settings table from configured
// channels, for drivers whose hardware does not self-describe sensitivity.
// The returned map contains an entry for every enabled channel.
func settingsFromConfig(channels []config.ChannelConfig) map[int]ChannelSettings {
	out := make(map[int]ChannelSettings, len(channels))
	for _, c := range channels {
		if !c.Enabled {
			continue
		}
		s := ChannelSettings{
			Sensitivity:     c.Sensitivity,
			SensitivityUnit: c.SensitivityUnit,
			OutputUnit:      c.Unit,
		}
		if s.Sensitivity == 0 {
			s.Sensitivity = 1
		}
		if s.SensitivityUnit == "" {
			s.SensitivityUnit = "V/V"
		}
		if s.OutputUnit == "" {
			s.OutputUnit = "V"
		}
		out[c.Channel] = s
	}
	return out
}

// enabledChannels returns the enabled channel indexes in configuration order.
func enabledChannels(channels []config.ChannelConfig) []int {
	out := make([]int, 0, len(channels))
	for _, c := range channels {
		if c.Enabled {
			out = append(out, c.Channel)
		}
	}
	return out
}

func queryInt(u *url.URL, key string, def int) (int, error) {
	v := u.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 0, 0)
	if err != nil {
		return 0, fmt.Errorf("query parameter %s: %w", key, err)
	}
	return int(n), nil
}
