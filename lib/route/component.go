package route

import "fmt"

// Component identifies the local subsystem that should receive a delivered payload.
// The zero value is not a valid destination.
type Component uint8

const (
	ComponentUnknown Component = iota
	Dispatcher
	ProxyClient
	ProxyServer
	Neighborhood
	Accountant
	Hopper
)

// Components lists every valid Component in declaration order.
var Components = []Component{Dispatcher, ProxyClient, ProxyServer, Neighborhood, Accountant, Hopper}

// Valid reports whether c names a known subsystem.
func (c Component) Valid() bool {
	return c > ComponentUnknown && c <= Hopper
}

func (c Component) String() string {
	switch c {
	case Dispatcher:
		return "Dispatcher"
	case ProxyClient:
		return "ProxyClient"
	case ProxyServer:
		return "ProxyServer"
	case Neighborhood:
		return "Neighborhood"
	case Accountant:
		return "Accountant"
	case Hopper:
		return "Hopper"
	default:
		return fmt.Sprintf("Component(%d)", uint8(c))
	}
}
