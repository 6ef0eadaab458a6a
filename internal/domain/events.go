package domain

import "encoding/json"

const (
	WsEventSamplePublished = "sample.published"
	WsEventSamplerFailed   = "sampler.failed"
)

const (
	WsSubscribe   = "subscribe"
	WsUnsubscribe = "unsubscribe"
)

type WsClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type WsServerEvent struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

type FailurePayload struct {
	Error string `json:"error"`
}
