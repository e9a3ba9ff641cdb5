package biometric

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// FaceVector is a face embedding. Enrollment accepts either a bare JSON array
// or an object wrapping it as {"embedding": [...]}; both normalize to this type.
type FaceVector []float64

// UnmarshalJSON implements json.Unmarshaler.
func (v *FaceVector) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*v = nil
		return nil
	}

	var raw []float64
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapped struct {
			Embedding []float64 `json:"embedding"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return fmt.Errorf("face template: %w", err)
		}
		if wrapped.Embedding == nil {
			return errors.New("face template: object without embedding")
		}
		raw = wrapped.Embedding
	} else if err := json.Unmarshal(trimmed, &raw); err != nil {
		return fmt.Errorf("face template: %w", err)
	}

	*v = FaceVector(raw)
	return nil
}

// Encode returns the stored representation: a JSON array of numbers.
func (v FaceVector) Encode() ([]byte, error) {
	if len(v) == 0 {
		return nil, errors.New("empty face vector")
	}
	return json.Marshal([]float64(v))
}

// DecodeFaceVector parses a stored face template.
func DecodeFaceVector(raw []byte) (FaceVector, error) {
	var out []float64
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode face template: %w", err)
	}
	if len(out) == 0 {
		return nil, errors.New("decode face template: empty vector")
	}
	return FaceVector(out), nil
}

// DecodeFingerprint decodes a base64 fingerprint template (standard or raw-URL alphabet).
func DecodeFingerprint(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("fingerprint template is not valid base64: %w", err)
	}
	return b, nil
}

// Owner identifies the enrolled person a template belongs to.
type Owner struct {
	UserID    int64
	UUID      string
	Firstname string
	Lastname  string
}

// Template is one enrollment row. Face holds the encoded FaceVector; either
// modality may be nil but never an empty slice.
type Template struct {
	ID          int64
	Owner       Owner
	Face        []byte
	Fingerprint []byte
	CreatedAt   time.Time
}
