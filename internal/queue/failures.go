package queue

import (
	"encoding/json"
	"strings"
)

// FailureDetail records one image that never reached the host despite the
// engine's retry passes. The set from the most recent run is stored on the
// item as JSON for the list command and the artifact summary.
type FailureDetail struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// FailureList decodes the failure details persisted on the item. Corrupt or
// empty payloads decode to nil.
func (i Item) FailureList() []FailureDetail {
	raw := strings.TrimSpace(i.FailuresJSON)
	if raw == "" {
		return nil
	}
	var failures []FailureDetail
	if err := json.Unmarshal([]byte(raw), &failures); err != nil {
		return nil
	}
	return failures
}

// SetFailureList replaces the persisted failure details.
func (i *Item) SetFailureList(failures []FailureDetail) {
	if len(failures) == 0 {
		i.FailuresJSON = ""
		return
	}
	data, err := json.Marshal(failures)
	if err != nil {
		return
	}
	i.FailuresJSON = string(data)
}
