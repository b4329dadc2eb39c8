package kafka

import (
	"encoding/json"
	"fmt"

	"go-fulfillment-ws/internal/event"
)

func Marshal(env event.Envelope) ([]byte, error) {
	b, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return b, nil
}

func UnmarshalEnvelope(b []byte) (event.Envelope, error) {
	var env event.Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return env, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}

// PartitionKey keeps every event of one aggregate on the same partition.
func PartitionKey(id string) []byte { return []byte(id) }
