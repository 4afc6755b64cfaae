package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// DetailInterval states that Value holds for the path points From..To.
// Value is whatever the routing API sent: string, float64, bool or nil.
type DetailInterval struct {
	From  int
	To    int
	Value any
}

type DetailArray []DetailInterval

func (d *DetailInterval) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("detail interval: %w", err)
	}
	if len(raw) != 3 {
		return fmt.Errorf("detail interval: expected 3 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &d.From); err != nil {
		return fmt.Errorf("detail interval start: %w", err)
	}
	if err := json.Unmarshal(raw[1], &d.To); err != nil {
		return fmt.Errorf("detail interval end: %w", err)
	}
	var value any
	if err := json.Unmarshal(raw[2], &value); err != nil {
		return fmt.Errorf("detail interval value: %w", err)
	}
	d.Value = value
	return nil
}

func (d DetailInterval) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{d.From, d.To, d.Value})
}

// ValueString renders a detail value the way it is shown to users.
func ValueString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprint(t)
	}
}
