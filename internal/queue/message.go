package queue

import (
	"encoding/json"
	"errors"
)

// TypeRankingCompleted marks a ranking run that persisted and charged successfully.
const TypeRankingCompleted = "ranking.completed"

// MessageVersion is the current payload version.
const MessageVersion = 1

// ErrInvalidMessage is returned when a payload lacks its required fields.
var ErrInvalidMessage = errors.New("invalid queue message")

// Message is the payload sent to downstream queue consumers.
type Message struct {
	Type        string `json:"type"`
	SessionID   string `json:"sessionId"`
	UserID      string `json:"userId"`
	ResultCount int    `json:"resultCount"`
	RequestID   string `json:"requestId,omitempty"`
	EnqueuedAt  string `json:"enqueuedAt"`
	Version     int    `json:"version"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	if msg.Type == "" || msg.SessionID == "" {
		return nil, ErrInvalidMessage
	}
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	if msg.Type == "" || msg.SessionID == "" {
		return Message{}, ErrInvalidMessage
	}
	return msg, nil
}
