package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Envelope is the serialized form of a Message.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Encode wraps msg in an Envelope.
func Encode(msg Message) (Envelope, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", msg.MessageType(), err)
	}
	return Envelope{Type: msg.MessageType(), Payload: payload}, nil
}

// Marshal encodes msg as envelope JSON.
func Marshal(msg Message) ([]byte, error) {
	env, err := Encode(msg)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// Unmarshal decodes envelope JSON into a Message.
func Unmarshal(data []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return Decode(env)
}

// Decode validates the envelope payload against the schema of its type and
// returns the typed message. Payloads are never trusted structurally.
func Decode(env Envelope) (Message, error) {
	schema, ok := payloadSchemas[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}

	payload := env.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return nil, fmt.Errorf("validate %s payload: %w", env.Type, err)
	}
	if !result.Valid() {
		violations := make([]string, 0, len(result.Errors()))
		for _, re := range result.Errors() {
			violations = append(violations, re.String())
		}
		return nil, &SchemaError{Type: env.Type, Violations: violations}
	}

	var msg Message
	switch env.Type {
	case TypeSubmitChanges:
		msg, err = decodeAs[SubmitChangesRequest](payload)
	case TypeArchive:
		msg, err = decodeAs[ArchiveRequest](payload)
	case TypeUnarchive:
		msg, err = decodeAs[UnarchiveRequest](payload)
	case TypeRefresh:
		msg = RefreshRequest{}
	case TypeResult:
		msg, err = decodeAs[Reply](payload)
	case TypeReviewSpecs:
		msg, err = decodeAs[ReviewSpecsUpdate](payload)
	case TypeArchivedSpecs:
		msg, err = decodeAs[ArchivedSpecsUpdate](payload)
	case TypeSpecUpdated:
		msg, err = decodeAs[SpecPatched](payload)
	case TypeReset:
		msg = ResetNotice{}
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", env.Type, err)
	}
	return msg, nil
}

func decodeAs[T Message](payload json.RawMessage) (Message, error) {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, err
	}
	return v, nil
}
