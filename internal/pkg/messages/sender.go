package messages

// Sender sends a message to message broker
type Sender interface {
	Send(message *StatusMessage, queue string, replyQueue string) error
}
