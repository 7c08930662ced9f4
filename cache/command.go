package cache

import "encoding/json"

const (
	CommandPut   = "put"
	CommandPatch = "patch"
	CommandClear = "clear"
)

type Command struct {
	Name      string          `json:"name"`
	Uuid      string          `json:"uuid"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type patchPayload struct {
	I    int             `json:"i"`
	Diff json.RawMessage `json:"diff"`
}
