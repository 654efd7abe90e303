// Package proto holds the protocol-level vocabulary shared by the codec,
// proxy, logger, and replay packages: connection directions and the
// Handshake/Status/Login/Configuration/Play state machine.
package proto

// Endpoint tags the direction of a byte stream or a log entry. The proxy
// sits between a real client and a real server; most traffic simply
// passes through (Client, Server), but some is consumed or synthesized by
// the proxy itself.
type Endpoint int

const (
	// Client is traffic observed at proxy ingress, client -> server.
	Client Endpoint = iota
	// Server is traffic observed at proxy ingress, server -> client.
	Server
	// ClientToSniffcraft is a client packet the proxy consumed and did not forward.
	ClientToSniffcraft
	// ServerToSniffcraft is a server packet the proxy consumed and did not forward.
	ServerToSniffcraft
	// SniffcraftToClient is a packet the proxy injected toward the client.
	SniffcraftToClient
	// SniffcraftToServer is a packet the proxy injected toward the server.
	SniffcraftToServer
)

func (e Endpoint) String() string {
	switch e {
	case Client:
		return "Client"
	case Server:
		return "Server"
	case ClientToSniffcraft:
		return "ClientToSniffcraft"
	case ServerToSniffcraft:
		return "ServerToSniffcraft"
	case SniffcraftToClient:
		return "SniffcraftToClient"
	case SniffcraftToServer:
		return "SniffcraftToServer"
	default:
		return "Unknown"
	}
}

// SimpleOrigin collapses the four proxy-side variants down to whichever
// role (Client or Server) the proxy was acting on behalf of, for
// statistics and filtering purposes.
func SimpleOrigin(e Endpoint) Endpoint {
	switch e {
	case ClientToSniffcraft, SniffcraftToServer:
		return Client
	case ServerToSniffcraft, SniffcraftToClient:
		return Server
	default:
		return e
	}
}

// ConnectionState is the enumerated phase of the protocol. It dictates
// which packet-id table applies and is driven by specific packets (see
// the proxy package's handler table).
type ConnectionState int

const (
	None ConnectionState = iota
	Handshake
	Status
	Login
	Configuration
	Play
)

func (s ConnectionState) String() string {
	switch s {
	case None:
		return "None"
	case Handshake:
		return "Handshake"
	case Status:
		return "Status"
	case Login:
		return "Login"
	case Configuration:
		return "Configuration"
	case Play:
		return "Play"
	default:
		return "Unknown"
	}
}
