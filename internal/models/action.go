// internal/models/action.go
package models

// ActionRecord is one accepted room action, as shipped to the action log and
// persisted by the historian.
type ActionRecord struct {
	RoomCode      string                 `json:"room_code"`
	ActionIndex   int                    `json:"action_index"`
	ActorID       ConnID                 `json:"actor_id,omitempty"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}
