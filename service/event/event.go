package event

import "time"

// Context describes where an event originated
type Context struct {
	ProcessID int    `json:"processID"`
	EventType string `json:"eventType"`
	Loop      string `json:"loop,omitempty"`
}

type Event[T any] struct {
	Context   *Context  `json:"context"`
	CreatedAt time.Time `json:"createdAt"`
	Data      T         `json:"data"`
}

func NewEvent[T any](context *Context, data T, createdAt time.Time) *Event[T] {
	return &Event[T]{
		Context:   context,
		CreatedAt: createdAt,
		Data:      data,
	}
}
