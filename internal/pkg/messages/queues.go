package messages

const (
	// StatusChange queue - worker publishes space status transitions
	StatusChange string = "StatusChange"
)
