package messages

import "time"

//StatusMessage goes through the broker when space processing state changes
type StatusMessage struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	At     int64  `json:"at,omitempty"`
}

//NewStatusMessage creates the message for space id and status
func NewStatusMessage(id string, status string) *StatusMessage {
	return &StatusMessage{ID: id, Status: status, At: time.Now().Unix()}
}

//NewStatusMsgWithError creates the message with error
func NewStatusMsgWithError(id string, status string, errMsg string) *StatusMessage {
	return &StatusMessage{ID: id, Status: status, Error: errMsg, At: time.Now().Unix()}
}
