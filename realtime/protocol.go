// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"time"

	"github.com/danielhkuo/live-poll/models"
)

// Inbound message types
const (
	TypeSubscribe   = "subscribe_to_poll"
	TypeUnsubscribe = "unsubscribe_from_poll"
	TypePing        = "ping"
)

// Outbound message types
const (
	TypeSubscribed   = "subscription_confirmed"
	TypeUnsubscribed = "unsubscription_confirmed"
	TypeError        = "error"
	TypePollUpdate   = "poll_update"
	TypePong         = "pong"
)

// InboundMessage is any message a client sends
type InboundMessage struct {
	Type   string `json:"type"`
	PollID string `json:"pollId,omitempty"`
}

type SubscriptionMessage struct {
	Type    string `json:"type"`
	PollID  string `json:"pollId"`
	Message string `json:"message"`
}

type ErrorMessage struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type PollUpdateMessage struct {
	Type      string            `json:"type"`
	PollID    string            `json:"pollId"`
	Data      models.PollResult `json:"data"`
	Timestamp time.Time         `json:"timestamp"`
}

type PongMessage struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}
