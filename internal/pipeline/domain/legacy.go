package domain

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoLegacyOwner is returned when a legacy record names no owner at all.
var ErrNoLegacyOwner = errors.New("legacy record has no owner reference")

// LegacyOwnerFields are the foreign keys used by records written before Owner existed.
// ClienteID is the oldest spelling of the account key.
type LegacyOwnerFields struct {
	PipelineID string `json:"pipelineId,omitempty"`
	CuentaID   string `json:"cuentaId,omitempty"`
	ClienteID  string `json:"clienteId,omitempty"`
}

// MigrateLegacyOwner converts legacy keys into one Owner.
// An account key wins over a deal key because conversion sets the account key last.
func MigrateLegacyOwner(legacy LegacyOwnerFields) (Owner, error) {
	if id := strings.TrimSpace(legacy.CuentaID); id != "" {
		return AccountOwner(id), nil
	}
	if id := strings.TrimSpace(legacy.ClienteID); id != "" {
		return AccountOwner(id), nil
	}
	if id := strings.TrimSpace(legacy.PipelineID); id != "" {
		return DealOwner(id), nil
	}
	return Owner{}, ErrNoLegacyOwner
}

// MigrateLegacyRecord rewrites one JSON object of an activity, task or reminder
// so that it carries "owner" and none of the legacy keys. Records that already
// carry a valid owner are returned unchanged.
func MigrateLegacyRecord(raw json.RawMessage) (json.RawMessage, bool, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, false, err
	}

	if ownerRaw, ok := fields["owner"]; ok {
		var owner Owner
		if err := json.Unmarshal(ownerRaw, &owner); err == nil && owner.Valid() {
			return raw, false, nil
		}
	}

	var legacy LegacyOwnerFields
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return nil, false, err
	}
	owner, err := MigrateLegacyOwner(legacy)
	if err != nil {
		return nil, false, err
	}

	ownerRaw, err := json.Marshal(owner)
	if err != nil {
		return nil, false, err
	}
	delete(fields, "pipelineId")
	delete(fields, "cuentaId")
	delete(fields, "clienteId")
	fields["owner"] = ownerRaw

	out, err := json.Marshal(fields)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}
