package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FireOutcome is the result of a fire action or of reactive fire.
type FireOutcome string

const (
	FireMiss     FireOutcome = "MISS"
	FirePin      FireOutcome = "PIN"
	FireSuppress FireOutcome = "SUPPRESS"
	FireKill     FireOutcome = "KILL"
)

// AssaultOutcome is the result of an assault action.
type AssaultOutcome string

const (
	AssaultFail    AssaultOutcome = "FAIL"
	AssaultSuccess AssaultOutcome = "SUCCESS"
)

// Ordinal order of the numeric outcome encoding. Older servers send the
// index instead of the name; both decode to the same value and the client
// only ever emits names.
var (
	fireOutcomeOrder    = []FireOutcome{FireMiss, FirePin, FireSuppress, FireKill}
	assaultOutcomeOrder = []AssaultOutcome{AssaultFail, AssaultSuccess}
)

// UnmarshalJSON accepts the named or the ordinal encoding.
func (o *FireOutcome) UnmarshalJSON(data []byte) error {
	v, err := decodeEnum(data, fireOutcomeOrder, "fire outcome")
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// UnmarshalJSON accepts the named or the ordinal encoding.
func (o *AssaultOutcome) UnmarshalJSON(data []byte) error {
	v, err := decodeEnum(data, assaultOutcomeOrder, "assault outcome")
	if err != nil {
		return err
	}
	*o = v
	return nil
}

func decodeEnum[T ~string](data []byte, order []T, kind string) (T, error) {
	var zero T
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return zero, fmt.Errorf("%s: %w", kind, err)
		}
		for _, v := range order {
			if string(v) == name {
				return v, nil
			}
		}
		return zero, fmt.Errorf("%s: unknown value %q", kind, name)
	}

	var idx int
	if err := json.Unmarshal(data, &idx); err != nil {
		return zero, fmt.Errorf("%s: %w", kind, err)
	}
	if idx < 0 || idx >= len(order) {
		return zero, fmt.Errorf("%s: ordinal %d out of range", kind, idx)
	}
	return order[idx], nil
}
