package storage

import (
	"encoding/json"
	"fmt"

	"github.com/davidpenaloza/mvp-farmacias-v2/core"
)

// MarshalPharmacy serializes a Pharmacy to bytes.
func MarshalPharmacy(p *core.Pharmacy) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalPharmacy deserializes a Pharmacy from bytes.
func UnmarshalPharmacy(data []byte) (*core.Pharmacy, error) {
	var p core.Pharmacy
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &p, nil
}
