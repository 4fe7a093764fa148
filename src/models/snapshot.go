package models

import (
	"encoding/json"
	"fmt"
)

// AuthInfo is the snapshot owner identity. Password is the bcrypt hash when
// exported by this backend; legacy snapshots may carry it in the clear.
type AuthInfo struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
}

// SyncInfo is the remote blob-store binding of a snapshot.
type SyncInfo struct {
	SyncID     string `json:"syncId"`
	AutoSync   bool   `json:"autoSync"`
	LastSynced string `json:"lastSynced"`
}

// AppData is the full application snapshot. This shape is the external
// contract: import/export must round-trip it exactly.
type AppData struct {
	Auth         AuthInfo        `json:"auth"`
	Sync         SyncInfo        `json:"sync"`
	Transactions []Transaction   `json:"transactions"`
	Accounts     []Account       `json:"accounts"`
	Parties      []Party         `json:"parties"`
	Inventory    []InventoryItem `json:"inventory"`
	Credentials  []Credential    `json:"credentials"`
	Categories   Categories      `json:"categories"`
	Journal      []JournalEntry  `json:"journal"`
	Budgets      []Budget        `json:"budgets"`
	Goals        []Goal          `json:"goals"`
	Investments  []Investment    `json:"investments"`
}

// ExportEnvelope wraps a snapshot for file export. Earlier variants exported
// the bare AppData object, so import accepts both forms.
type ExportEnvelope struct {
	Version   int     `json:"version"`
	Timestamp string  `json:"timestamp"`
	Owner     string  `json:"owner"`
	SyncID    string  `json:"syncId"`
	Payload   AppData `json:"payload"`
}

// DecodeSnapshot parses raw import bytes as either an ExportEnvelope or a
// bare AppData document. A document with no owner identity is rejected so a
// malformed file can never replace the live snapshot.
func DecodeSnapshot(raw []byte) (*AppData, error) {
	var envelope ExportEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Payload.Auth.UserID != "" {
		return &envelope.Payload, nil
	}

	var data AppData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("snapshot is not valid JSON: %w", err)
	}
	if data.Auth.UserID == "" {
		return nil, fmt.Errorf("snapshot has no owner identity")
	}
	return &data, nil
}
