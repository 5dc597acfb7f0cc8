package trace

import "time"

// Connection represents one gateway WebSocket connection.
type Connection struct {
	ID        string     `json:"id"`
	Metadata  string     `json:"metadata"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	TurnCount int        `json:"turn_count,omitempty"`
}

// Turn represents one commit-through-response.done cycle.
type Turn struct {
	ID           string    `json:"id"`
	ConnectionID string    `json:"connection_id"`
	StartedAt    time.Time `json:"started_at"`
	DurationMs   float64   `json:"duration_ms,omitempty"`
	Transcript   string    `json:"transcript,omitempty"`
	Response     string    `json:"response,omitempty"`
	Status       string    `json:"status"`
	StageCount   int       `json:"stage_count,omitempty"`
}

// Stage represents an individual pipeline stage execution within a turn
// (vad, asr, llm, tts, ...).
type Stage struct {
	ID         string    `json:"id"`
	TurnID     string    `json:"turn_id"`
	Name       string    `json:"name"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs float64   `json:"duration_ms"`
	Input      string    `json:"input,omitempty"`
	Output     string    `json:"output,omitempty"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
}
