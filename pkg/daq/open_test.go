package daq

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sx-tools/siriusx-to-mqtt/pkg/config"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestOpenSchemeDispatch(t *testing.T) {
	cfg := config.DefaultConfig()
	logger := testLogger()

	inst, err := Open("daq.sim://local", cfg, logger)
	if err != nil {
		t.Fatalf("sim scheme: %v", err)
	}
	if _, ok := inst.(*SimInstance); !ok {
		t.Fatalf("sim scheme returned %T", inst)
	}

	inst, err = Open("daq.ads1115://2?addr=0x48", cfg, logger)
	if err != nil {
		t.Fatalf("ads1115 scheme: %v", err)
	}
	if _, ok := inst.(*ADS1115Instance); !ok {
		t.Fatalf("ads1115 scheme returned %T", inst)
	}

	inst, err = Open("daq.serial:///dev/ttyUSB0?baud=9600", cfg, logger)
	if err != nil {
		t.Fatalf("serial scheme: %v", err)
	}
	if _, ok := inst.(*SerialInstance); !ok {
		t.Fatalf("serial scheme returned %T", inst)
	}

	if _, err = Open("daq.sirius://192.168.1.100", cfg, logger); err == nil {
		t.Fatalf("expected error for unsupported scheme")
	}
}

func TestSettingsFromConfig(t *testing.T) {
	channels := []config.ChannelConfig{
		{Channel: 0, Enabled: true, Sensitivity: 100, SensitivityUnit: "mV/g", Unit: "g"},
		{Channel: 1, Enabled: true},
		{Channel: 2, Enabled: false, Sensitivity: 50, SensitivityUnit: "mV/Pa", Unit: "Pa"},
	}
	got := settingsFromConfig(channels)

	if len(got) != 2 {
		t.Fatalf("settings len: got %d want 2 (disabled channels excluded)", len(got))
	}
	if s := got[0]; s.Sensitivity != 100 || s.SensitivityUnit != "mV/g" || s.OutputUnit != "g" {
		t.Fatalf("channel 0 settings: %+v", s)
	}
	// unset metadata falls back to unity voltage
	if s := got[1]; s.Sensitivity != 1 || s.SensitivityUnit != "V/V" || s.OutputUnit != "V" {
		t.Fatalf("channel 1 defaults: %+v", s)
	}
	if _, ok := got[2]; ok {
		t.Fatalf("disabled channel present in settings")
	}
}

func TestEnabledChannels(t *testing.T) {
	channels := []config.ChannelConfig{
		{Channel: 3, Enabled: true},
		{Channel: 0, Enabled: false},
		{Channel: 1, Enabled: true},
	}
	got := enabledChannels(channels)
	if len(got) != 2 || got[0] != 3 || got[1] != 1 {
		t.Fatalf("enabledChannels = %v; want [3 1]", got)
	}
}
