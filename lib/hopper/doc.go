// Package hopper moves cores packages through the relay network.
//
// A local component hands an IncipientCoresPackage to the Hopper. The
// ConsumingService seals the route, layers the payload once per hop and sends the
// resulting LiveCoresPackage to the first hop. Every node receiving bytes hands
// them to the RoutingService, which strips exactly one layer with the node's own
// key and either delivers the payload to the local component named by the final
// hop record or forwards the reduced package to the next hop, reporting a relay
// fee to the accountant.
//
// Relays keep no per-package state. Everything a route needs travels in the
// package bytes.
//
// The Hopper is created unbound so that its recipients can be handed to the
// dispatcher before the dispatcher's own recipients exist. A single BindMessage
// supplies the collaborators; any package arriving before it is a wiring bug and
// panics.
package hopper
