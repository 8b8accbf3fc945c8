package types

import (
	"bytes"
	"encoding/json"

	"github.com/google/uuid"
)

// NullableUUID tracks whether a UUID field was explicitly present in JSON so
// PATCH payloads can distinguish "clear" from "leave unchanged".
type NullableUUID struct {
	Valid bool
	Value *uuid.UUID
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *NullableUUID) UnmarshalJSON(data []byte) error {
	n.Valid = true
	n.Value = nil
	if isJSONNull(data) {
		return nil
	}
	var parsed uuid.UUID
	if err := json.Unmarshal(data, &parsed); err != nil {
		return err
	}
	n.Value = &parsed
	return nil
}

// NullableInt64 is the int64 counterpart of NullableUUID, used for optional
// money fields such as a product's discount price.
type NullableInt64 struct {
	Valid bool
	Value *int64
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *NullableInt64) UnmarshalJSON(data []byte) error {
	n.Valid = true
	n.Value = nil
	if isJSONNull(data) {
		return nil
	}
	var parsed int64
	if err := json.Unmarshal(data, &parsed); err != nil {
		return err
	}
	n.Value = &parsed
	return nil
}

func isJSONNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}
