package core

import "github.com/ethereum/go-ethereum/common"

// University is an entry in the on-ledger issuer registry.
//
// ID is a content hash derived off-chain (e.g. a hashed UUID) and is immutable
// once the entry is created. Exists is never unset; Authorized is toggled by
// revoke/restore. Index is the entry's position in the insertion-ordered
// enumeration and must always match it.
type University struct {
	ID         common.Hash    `json:"id"`
	Registrant common.Address `json:"registrant"`
	Directory  string         `json:"directory"`
	Index      int            `json:"index"`
	Exists     bool           `json:"exists"`
	Authorized bool           `json:"authorized"`
}

// Certificate is a uniquely numbered non-fungible credential minted by a
// university registrant. Token ids are sequential from 1 and never reused.
type Certificate struct {
	TokenID      uint64         `json:"token_id"`
	Owner        common.Address `json:"owner"`
	UniversityID common.Hash    `json:"university_id"`
}
