package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// ExportRequestMessage asks the worker to build one artifact. The worker
// builds from the data current at processing time.
type ExportRequestMessage struct {
	JobID       string    `json:"job_id"`
	Kind        string    `json:"kind"`
	RequestedAt time.Time `json:"requested_at"`
}

func NewExportRequestMessage(jobID, kind string) *ExportRequestMessage {
	return &ExportRequestMessage{
		JobID:       jobID,
		Kind:        kind,
		RequestedAt: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExportRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExportRequestMessageFromJSON decodes a message and checks required fields.
func ExportRequestMessageFromJSON(data []byte) (*ExportRequestMessage, error) {
	var msg ExportRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.JobID == "" {
		return nil, errors.New("export request without job_id")
	}
	if msg.Kind == "" {
		return nil, errors.New("export request without kind")
	}
	return &msg, nil
}
