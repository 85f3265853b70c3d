package contract

import "github.com/ethereum/go-ethereum/common"

// UniversityRegisteredEvent is emitted when a university is authorized.
type UniversityRegisteredEvent struct {
	UniversityID common.Hash    `json:"university_id"`
	Registrant   common.Address `json:"registrant"`
	Directory    string         `json:"directory"`
	Index        int            `json:"index"`
}

// UniversityPermissionEvent is emitted on revoke and restore.
type UniversityPermissionEvent struct {
	UniversityID common.Hash `json:"university_id"`
	Authorized   bool        `json:"authorized"`
}

// UniversityRegistrantChangedEvent is emitted when the registrant pointer of
// a university is reassigned.
type UniversityRegistrantChangedEvent struct {
	UniversityID  common.Hash    `json:"university_id"`
	OldRegistrant common.Address `json:"old_registrant"`
	NewRegistrant common.Address `json:"new_registrant"`
}

// CertificateIssuedEvent is the mint event: a transfer from the zero address.
type CertificateIssuedEvent struct {
	TokenID      uint64         `json:"token_id"`
	UniversityID common.Hash    `json:"university_id"`
	From         common.Address `json:"from"`
	To           common.Address `json:"to"`
	TokenURI     string         `json:"token_uri"`
}

// CertificateTransferredEvent is emitted on ownership transfer.
type CertificateTransferredEvent struct {
	TokenID uint64         `json:"token_id"`
	From    common.Address `json:"from"`
	To      common.Address `json:"to"`
}
