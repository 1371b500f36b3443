package factory

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/forgeq/forgeq/internal/serialization"
)

// DecodeArguments unmarshals a descriptor's raw arguments into v,
// auto-detecting the encoding the way the teacher's job.UnmarshalPayload
// does: a plain JSON value is unmarshalled directly; a JSON string is
// treated as base64-encoded bytes carrying a serialization format-prefix
// byte (internal/serialization), letting a constructor accept either an
// ordinary JSON object or a protobuf-encoded argument list transparently.
func DecodeArguments(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err != nil {
		// Not a JSON string: a plain JSON payload.
		return json.Unmarshal(raw, v)
	}

	decoded, err := base64.StdEncoding.DecodeString(asString)
	if err != nil {
		// Looked like a string but isn't base64 — treat as a literal
		// JSON string value.
		return json.Unmarshal(raw, v)
	}

	ser := serialization.NewJSONSerializer()
	if err := ser.Unmarshal(decoded, v); err != nil {
		return fmt.Errorf("factory: decode arguments: %w", err)
	}
	return nil
}
