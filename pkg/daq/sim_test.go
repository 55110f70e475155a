package daq

import (
	"testing"

	"github.com/sx-tools/siriusx-to-mqtt/pkg/config"
)

func TestSimDeviceRead(t *testing.T) {
	channels := []config.ChannelConfig{
		{Channel: 0, Enabled: true, Sensitivity: 100, SensitivityUnit: "mV/g", Unit: "g"},
		{Channel: 2, Enabled: true},
	}
	inst := NewSimInstance(channels, 8)
	dev, err := inst.AddDevice("daq.sim://local")
	if err != nil {
		t.Fatalf("AddDevice: %v", err)
	}

	frames, err := dev.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("frames: got %d want 2", len(frames))
	}
	if frames[0].Channel != 0 || frames[1].Channel != 2 {
		t.Fatalf("channel order: %d, %d", frames[0].Channel, frames[1].Channel)
	}
	for _, f := range frames {
		if len(f.Samples) != 8 {
			t.Fatalf("channel %d block size: got %d want 8", f.Channel, len(f.Samples))
		}
	}
}

func TestSimDeviceDeterministic(t *testing.T) {
	channels := []config.ChannelConfig{{Channel: 0, Enabled: true}}
	make2 := func() []Frame {
		dev, err := NewSimInstance(channels, 4).AddDevice("daq.sim://local")
		if err != nil {
			t.Fatalf("AddDevice: %v", err)
		}
		frames, err := dev.Read()
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		return frames
	}
	a, b := make2(), make2()
	for i := range a[0].Samples {
		if a[0].Samples[i] != b[0].Samples[i] {
			t.Fatalf("sample %d differs between fresh devices: %v vs %v", i, a[0].Samples[i], b[0].Samples[i])
		}
	}
}

func TestSimDeviceSettings(t *testing.T) {
	channels := []config.ChannelConfig{
		{Channel: 0, Enabled: true, Sensitivity: 100, SensitivityUnit: "mV/g", Unit: "g"},
	}
	dev, err := NewSimInstance(channels, 1).AddDevice("daq.sim://local")
	if err != nil {
		t.Fatalf("AddDevice: %v", err)
	}
	st, ok := dev.ChannelSettings()[0]
	if !ok {
		t.Fatalf("channel 0 settings missing")
	}
	if st.Sensitivity != 100 || st.SensitivityUnit != "mV/g" || st.OutputUnit != "g" {
		t.Fatalf("settings: %+v", st)
	}
}
