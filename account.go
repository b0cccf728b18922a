package goaccount

import (
	"encoding/json"

	"github.com/halryd/goaccount/directory"
)

// Account is the engine's cached view of one user, reconciled from the
// identity provider, the directory record, and the local credential store.
// The engine holds a single current account; [Engine.CurrentAccount] returns
// copies.
type Account struct {
	ID          string        `json:"id,omitempty"`
	Username    string        `json:"username,omitempty"`
	Email       string        `json:"email,omitempty"`
	PhoneNumber string        `json:"phone_number,omitempty"`
	PhotoURL    string        `json:"photo_url,omitempty"`
	Status      AccountStatus `json:"status"`
	CreatedAt   int64         `json:"created_at,omitempty"`
	IDToken     string        `json:"-"`
}

// MergeIdentity folds a provider identity into the account. Only non-zero
// incoming fields overwrite; an existing value is never nulled out. CreatedAt
// is set once and then kept.
func (a *Account) MergeIdentity(identity *ProviderIdentity) {
	if identity == nil {
		return
	}
	if identity.ID != "" {
		a.ID = identity.ID
	}
	if identity.Email != "" {
		a.Email = identity.Email
	}
	if identity.PhoneNumber != "" {
		a.PhoneNumber = identity.PhoneNumber
	}
	if identity.DisplayName != "" {
		a.Username = identity.DisplayName
	}
	if identity.PhotoURL != "" {
		a.PhotoURL = identity.PhotoURL
	}
	if identity.IDToken != "" {
		a.IDToken = identity.IDToken
	}
	if a.CreatedAt == 0 && identity.CreatedAt != 0 {
		a.CreatedAt = identity.CreatedAt
	}
}

// MergeRecord folds a directory record into the account under the same
// present-fields-only rule as MergeIdentity.
func (a *Account) MergeRecord(record *directory.Record) {
	if record == nil {
		return
	}
	if record.Username != "" {
		a.Username = record.Username
	}
	if record.Email != "" {
		a.Email = record.Email
	}
	if record.PhotoURL != "" {
		a.PhotoURL = record.PhotoURL
	}
	if a.CreatedAt == 0 && record.CreatedAt != 0 {
		a.CreatedAt = record.CreatedAt
	}
}

// Reset clears the username so the account re-enters onboarding. All other
// fields, and any remote state, are left untouched.
func (a *Account) Reset() {
	a.Username = ""
}

// record projects the account onto its directory document.
func (a *Account) record() directory.Record {
	return directory.Record{
		Username:  a.Username,
		Email:     a.Email,
		PhotoURL:  a.PhotoURL,
		Status:    a.Status.String(),
		CreatedAt: a.CreatedAt,
	}
}

type accountSnapshot struct {
	ID          string `json:"id,omitempty"`
	Username    string `json:"username,omitempty"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
	Status      string `json:"status"`
	CreatedAt   int64  `json:"created_at,omitempty"`
}

func encodeAccount(a *Account) ([]byte, error) {
	return json.Marshal(accountSnapshot{
		ID:          a.ID,
		Username:    a.Username,
		Email:       a.Email,
		PhoneNumber: a.PhoneNumber,
		PhotoURL:    a.PhotoURL,
		Status:      a.Status.String(),
		CreatedAt:   a.CreatedAt,
	})
}

// decodeAccount tolerates corrupt payloads: the caller treats an error the
// same as an absent snapshot.
func decodeAccount(data []byte) (*Account, error) {
	var snap accountSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &Account{
		ID:          snap.ID,
		Username:    snap.Username,
		Email:       snap.Email,
		PhoneNumber: snap.PhoneNumber,
		PhotoURL:    snap.PhotoURL,
		Status:      parseAccountStatus(snap.Status),
		CreatedAt:   snap.CreatedAt,
	}, nil
}
