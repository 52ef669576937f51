package model

// ConnectionStatus is the state of the block feed websocket.
type ConnectionStatus string

const (
	StatusConnecting ConnectionStatus = "connecting"
	StatusConnected  ConnectionStatus = "connected"
	StatusClosed     ConnectionStatus = "closed"
)

func (s ConnectionStatus) String() string {
	return string(s)
}
