package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type MQTTConfig struct {
	Server   string `json:"server"`
	Username string `json:"username"`
	Password string `json:"password"`
	ClientID string `json:"client_id"`
	Topic    string `json:"topic"`
}

type WSConfig struct {
	Listen string `json:"listen"`
}

type OutputConfig struct {
	Type       string      `json:"type"`
	IntervalMs int         `json:"interval_ms,omitempty"`
	MQTT       *MQTTConfig `json:"mqtt,omitempty"`
	WS         *WSConfig   `json:"ws,omitempty"`
}

// ChannelConfig carries the sensitivity metadata for one acquisition
// channel, used for drivers whose hardware does not self-describe it.
type ChannelConfig struct {
	Channel         int     `json:"channel"`
	Enabled         bool    `json:"enabled"`
	Sensitivity     float64 `json:"sensitivity,omitempty"`
	SensitivityUnit string  `json:"sensitivity_unit,omitempty"`
	Unit            string  `json:"unit,omitempty"`
}

type Config struct {
	ConnectionString string          `json:"connection_string"`
	SampleRate       int             `json:"sample_rate"`
	BlockSize        int             `json:"block_size"`
	IntervalMs       int             `json:"interval_ms"`
	Channels         []ChannelConfig `json:"channels"`
	Outputs          []OutputConfig  `json:"outputs"`
	Verbose          bool            `json:"verbose"`
}

func DefaultConfig() Config {
	return Config{
		ConnectionString: "daq.sim://local",
		SampleRate:       128,
		BlockSize:        16,
		IntervalMs:       1000,
		Channels: []ChannelConfig{
			{Channel: 0, Enabled: true, Sensitivity: 1, SensitivityUnit: "V/V", Unit: "V"},
		},
		Outputs: []OutputConfig{{Type: "console", IntervalMs: 1000}},
	}
}

// LoadFromFlags loads configuration from a JSON file (optional) and flags.
// Flags override values present in the JSON file.
func LoadFromFlags() (Config, error) {
	cfgPath := flag.String("config", "", "Path to JSON config file")
	flagConnect := flag.String("connect", "", "Device connection string (daq.sim://, daq.ads1115://, daq.serial://)")
	flagSampleRate := flag.Int("sample-rate", -1, "ADC sample rate (SPS)")
	flagBlockSize := flag.Int("block-size", -1, "Samples per acquisition block")
	flagInterval := flag.Int("interval-ms", -1, "Acquisition interval in ms")
	flagChannels := flag.String("channels", "", "Comma-separated enabled channels e.g. 0,1,2")
	flagSensitivities := flag.String("sensitivities", "", "Per-channel sensitivity e.g. 0=100,1=1")
	flagSensUnits := flag.String("sensitivity-units", "", "Per-channel sensitivity unit e.g. 0=mV/g,1=V/V")
	flagUnits := flag.String("units", "", "Per-channel output unit e.g. 0=g,1=V")
	flagOutputs := flag.String("outputs", "", "Comma-separated outputs (console,mqtt,ws)")
	flagMQTTServer := flag.String("mqtt-server", "", "MQTT server (tcp://host:port)")
	flagMQTTUser := flag.String("mqtt-user", "", "MQTT username")
	flagMQTTPass := flag.String("mqtt-pass", "", "MQTT password")
	flagClientID := flag.String("mqtt-client-id", "", "MQTT client id")
	flagTopic := flag.String("mqtt-topic", "", "MQTT topic base")
	flagWSListen := flag.String("ws-listen", "", "WebSocket listen address e.g. :8080")
	flagVerbose := flag.Bool("verbose", false, "Enable debug logging")

	flag.Parse()

	cfg := DefaultConfig()

	if *cfgPath != "" {
		b, err := os.ReadFile(*cfgPath)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if *flagConnect != "" {
		cfg.ConnectionString = *flagConnect
	}
	if *flagSampleRate != -1 {
		cfg.SampleRate = *flagSampleRate
	}
	if *flagBlockSize != -1 {
		cfg.BlockSize = *flagBlockSize
	}
	if *flagInterval != -1 {
		cfg.IntervalMs = *flagInterval
	}
	if *flagChannels != "" {
		chs, err := parseChannels(*flagChannels)
		if err != nil {
			return cfg, err
		}
		cfg.Channels = mergeChannelList(cfg.Channels, chs)
	}
	if *flagSensitivities != "" {
		m, err := parseKeyFloatMap(*flagSensitivities)
		if err != nil {
			return cfg, fmt.Errorf("sensitivities: %w", err)
		}
		for i := range cfg.Channels {
			if v, ok := m[cfg.Channels[i].Channel]; ok {
				cfg.Channels[i].Sensitivity = v
			}
		}
	}
	if *flagSensUnits != "" {
		m, err := parseKeyStringMap(*flagSensUnits)
		if err != nil {
			return cfg, fmt.Errorf("sensitivity-units: %w", err)
		}
		for i := range cfg.Channels {
			if v, ok := m[cfg.Channels[i].Channel]; ok {
				cfg.Channels[i].SensitivityUnit = v
			}
		}
	}
	if *flagUnits != "" {
		m, err := parseKeyStringMap(*flagUnits)
		if err != nil {
			return cfg, fmt.Errorf("units: %w", err)
		}
		for i := range cfg.Channels {
			if v, ok := m[cfg.Channels[i].Channel]; ok {
				cfg.Channels[i].Unit = v
			}
		}
	}
	if *flagOutputs != "" {
		parts := parseCSV(*flagOutputs)
		outs := make([]OutputConfig, 0, len(parts))
		for _, p := range parts {
			outs = append(outs, OutputConfig{Type: p, IntervalMs: cfg.IntervalMs})
		}
		cfg.Outputs = outs
	}
	if *flagMQTTServer != "" || *flagMQTTUser != "" || *flagMQTTPass != "" || *flagClientID != "" || *flagTopic != "" {
		mq := findOrAddOutput(&cfg, "mqtt")
		if mq.MQTT == nil {
			mq.MQTT = &MQTTConfig{}
		}
		if *flagMQTTServer != "" {
			mq.MQTT.Server = *flagMQTTServer
		}
		if *flagMQTTUser != "" {
			mq.MQTT.Username = *flagMQTTUser
		}
		if *flagMQTTPass != "" {
			mq.MQTT.Password = *flagMQTTPass
		}
		if *flagClientID != "" {
			mq.MQTT.ClientID = *flagClientID
		}
		if *flagTopic != "" {
			mq.MQTT.Topic = *flagTopic
		}
	}
	if *flagWSListen != "" {
		ws := findOrAddOutput(&cfg, "ws")
		if ws.WS == nil {
			ws.WS = &WSConfig{}
		}
		ws.WS.Listen = *flagWSListen
	}
	if *flagVerbose {
		cfg.Verbose = true
	}

	// outputs inherit the global interval unless they carry their own
	for i := range cfg.Outputs {
		if cfg.Outputs[i].IntervalMs == 0 {
			cfg.Outputs[i].IntervalMs = cfg.IntervalMs
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks invariants the rest of the program relies on.
func (c *Config) Validate() error {
	if c.ConnectionString == "" {
		return errors.New("connection string is required")
	}
	if c.SampleRate <= 0 {
		return errors.New("sample-rate must be > 0")
	}
	for _, ch := range c.Channels {
		if ch.Enabled && ch.Sensitivity == 0 && ch.SensitivityUnit != "" {
			return fmt.Errorf("channel %d: sensitivity must be non-zero", ch.Channel)
		}
	}
	return nil
}

// findOrAddOutput returns the first output of the given type, appending a
// new entry when none exists.
func findOrAddOutput(cfg *Config, typ string) *OutputConfig {
	for i := range cfg.Outputs {
		if strings.EqualFold(cfg.Outputs[i].Type, typ) {
			return &cfg.Outputs[i]
		}
	}
	cfg.Outputs = append(cfg.Outputs, OutputConfig{Type: typ, IntervalMs: cfg.IntervalMs})
	return &cfg.Outputs[len(cfg.Outputs)-1]
}

// mergeChannelList enables exactly the listed channels, reusing existing
// per-channel settings where present.
func mergeChannelList(existing []ChannelConfig, channels []int) []ChannelConfig {
	byIndex := make(map[int]ChannelConfig, len(existing))
	for _, c := range existing {
		byIndex[c.Channel] = c
	}
	out := make([]ChannelConfig, 0, len(channels))
	for _, ch := range channels {
		c, ok := byIndex[ch]
		if !ok {
			c = ChannelConfig{Channel: ch}
		}
		c.Enabled = true
		out = append(out, c)
	}
	return out
}

func parseCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func parseChannels(s string) ([]int, error) {
	parts := parseCSV(s)
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid channel '%s': %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// parseKeyFloatMap parses "0=1.23,1=0.98" into {0: 1.23, 1: 0.98}.
func parseKeyFloatMap(s string) (map[int]float64, error) {
	out := map[int]float64{}
	for k, v := range parseKeyValuePairs(s) {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value '%s' for channel %d: %w", v, k, err)
		}
		out[k] = f
	}
	if len(out) == 0 && strings.TrimSpace(s) != "" {
		return nil, fmt.Errorf("invalid map '%s'", s)
	}
	return out, nil
}

// parseKeyStringMap parses "0=mV/g,1=V/V" into {0: "mV/g", 1: "V/V"}.
func parseKeyStringMap(s string) (map[int]string, error) {
	out := parseKeyValuePairs(s)
	if len(out) == 0 && strings.TrimSpace(s) != "" {
		return nil, fmt.Errorf("invalid map '%s'", s)
	}
	return out, nil
}

func parseKeyValuePairs(s string) map[int]string {
	out := map[int]string{}
	for _, p := range parseCSV(s) {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		k, err := strconv.Atoi(strings.TrimSpace(kv[0]))
		if err != nil {
			continue
		}
		out[k] = strings.TrimSpace(kv[1])
	}
	return out
}
