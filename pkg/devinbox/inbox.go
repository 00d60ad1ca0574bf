package devinbox

import (
	"sync"
	"time"
)

// DefaultCapacity is the number of messages kept when none is configured
const DefaultCapacity = 50

// Message is one email captured by the dev inbox
type Message struct {
	ID         string    `json:"id"`
	From       string    `json:"from"`
	To         []string  `json:"to"`
	Subject    string    `json:"subject"`
	HTML       string    `json:"html,omitempty"`
	Text       string    `json:"text,omitempty"`
	Size       int       `json:"size"`
	ReceivedAt time.Time `json:"received_at"`
}

// Inbox keeps the most recent messages up to its capacity
type Inbox struct {
	mu       sync.RWMutex
	capacity int
	messages []Message
}

// NewInbox returns an empty inbox; capacity <= 0 uses DefaultCapacity
func NewInbox(capacity int) *Inbox {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Inbox{capacity: capacity}
}

// Add stores msg, dropping the oldest message when full
func (i *Inbox) Add(msg Message) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.messages = append(i.messages, msg)
	if over := len(i.messages) - i.capacity; over > 0 {
		i.messages = append([]Message(nil), i.messages[over:]...)
	}
}

// List returns the stored messages, newest first
func (i *Inbox) List() []Message {
	i.mu.RLock()
	defer i.mu.RUnlock()

	out := make([]Message, len(i.messages))
	for n, msg := range i.messages {
		out[len(i.messages)-1-n] = msg
	}
	return out
}

// Get returns the message with id
func (i *Inbox) Get(id string) (Message, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	for _, msg := range i.messages {
		if msg.ID == id {
			return msg, true
		}
	}
	return Message{}, false
}

// Clear removes every message and returns how many were dropped
func (i *Inbox) Clear() int {
	i.mu.Lock()
	defer i.mu.Unlock()

	n := len(i.messages)
	i.messages = nil
	return n
}

// Len returns the number of stored messages
func (i *Inbox) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.messages)
}
