package interfaces

// Service is implemented by every inbound surface of the broker, such as the
// callback server invoked by the hub.
type Service interface {
	Start() error
	Stop()
}
