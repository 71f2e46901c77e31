package model

// Product represents a catalogue entry tracked for third-party offers.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
