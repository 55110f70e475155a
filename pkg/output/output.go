package output

import "github.com/sx-tools/siriusx-to-mqtt/pkg/daq"

// Output publishes scaled channel frames somewhere.
type Output interface {
	Publish([]daq.Frame) error
	Close() error
}

// constructors live in the subpackages
