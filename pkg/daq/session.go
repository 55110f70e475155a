package daq

import "fmt"

// Session owns at most one device handle obtained from its Instance. Sessions
// are independent of each other; a process may hold several at once.
type Session struct {
	instance Instance

	Device    Device
	Connected bool
}

func NewSession(instance Instance) *Session {
	return &Session{instance: instance}
}

// Connect adds the device behind connectionString. A driver error is not
// propagated: the diagnostic is printed and the result is false, with the
// device handle left unset. A failed attempt is terminal for that call; the
// caller may re-invoke.
func (s *Session) Connect(connectionString string) bool {
	dev, err := s.instance.AddDevice(connectionString)
	if err != nil {
		fmt.Printf("Error connecting to device: %v\n", err)
		s.Connected = false
		return false
	}
	s.Device = dev
	s.Connected = true
	return true
}

// Disconnect closes and forgets the device handle. Safe to call when no
// device is held.
func (s *Session) Disconnect() error {
	if s.Device == nil {
		return nil
	}
	err := s.Device.Close()
	s.Device = nil
	s.Connected = false
	if err != nil {
		return fmt.Errorf("close device: %w", err)
	}
	return nil
}
