// Package hendelse defines the domain events emitted after applied changes
// and progression sweeps, plus the Kafka publishing pipeline downstream
// systems consume them from.
package hendelse

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeEndringUtfort     Type = "ENDRING_UTFORT"
	TypeFremtidigEndring  Type = "FREMTIDIG_ENDRING_REGISTRERT"
	TypeStatusOppdatert   Type = "STATUS_OPPDATERT"
)

// Hendelse is one emitted domain event. Payload carries the serialized
// deltaker snapshot or change record, depending on the type.
type Hendelse struct {
	ID         uuid.UUID       `json:"id"`
	DeltakerID uuid.UUID       `json:"deltakerId"`
	Type       Type            `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Opprettet  time.Time       `json:"opprettet"`
}

// Ny builds a hendelse with a serialized payload.
func Ny(deltakerID uuid.UUID, t Type, payload any, opprettet time.Time) (Hendelse, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Hendelse{}, err
	}
	return Hendelse{
		ID:         uuid.New(),
		DeltakerID: deltakerID,
		Type:       t,
		Payload:    data,
		Opprettet:  opprettet,
	}, nil
}
