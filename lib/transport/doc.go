// Package transport carries live cores packages between nodes.
//
// Network is an in-memory transport: every node attaches with its public key and
// an inbound recipient, and gets back an Endpoint that accepts TransmitDataMsg.
// Each attached node is given a synthetic socket address so that the receiving
// side sees a peer address the same way it would from a real connection.
//
// Sends never block. Data for an unknown key, or for a node whose inbox is full,
// is dropped and logged.
//
// # Usage Example
//
//	net := transport.NewNetwork()
//	ep, err := net.Attach(cd.PublicKey(), hopper.Subs().FromDispatcher)
//	if err != nil {
//	    return err
//	}
//	hopper.Handle(hopper.BindMessage{PeerActors: hopper.PeerActors{Dispatcher: ep}})
package transport
