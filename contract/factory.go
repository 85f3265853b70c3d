// Package contract implements the certificate factory: an in-process,
// ledger-style state machine combining the university registry and the
// certificate issuance engine. Every mutating call is serialized by a single
// lock and validated before any state is touched, so a failed call leaves no
// partial effect and readers only ever observe committed state.
package contract

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/team-hex/hexcert/core"
	"github.com/team-hex/hexcert/internal/eth"
	"github.com/team-hex/hexcert/ports"
)

// factoryState is the whole of the factory's ledger state. It is persisted as
// a single snapshot after each committed mutation; the single-writer model
// makes the whole-blob snapshot consistent by construction.
type factoryState struct {
	Admins        map[common.Address]bool         `json:"admins"`
	Universities  map[common.Hash]*core.University `json:"universities"`
	Registrants   map[common.Address]common.Hash  `json:"registrants"`
	UniversityIDs []common.Hash                   `json:"university_ids"`
	BaseURI       string                          `json:"base_uri"`
	Certificates  map[uint64]*core.Certificate    `json:"certificates"`
	Balances      map[common.Address]uint64       `json:"balances"`
	NextTokenID   uint64                          `json:"next_token_id"`
}

func newFactoryState(baseURI string, admin common.Address) *factoryState {
	return &factoryState{
		Admins:       map[common.Address]bool{admin: true},
		Universities: make(map[common.Hash]*core.University),
		Registrants:  make(map[common.Address]common.Hash),
		BaseURI:      baseURI,
		Certificates: make(map[uint64]*core.Certificate),
		Balances:     make(map[common.Address]uint64),
		NextTokenID:  1,
	}
}

// CertificateFactory owns all registry and certificate state exclusively;
// mutation happens only through its gated entry points.
type CertificateFactory struct {
	mu    sync.RWMutex
	state *factoryState

	store  ports.StateStore
	events ports.EventPublisher
	log    *logrus.Entry
}

// NewCertificateFactory restores the factory from the state store, or starts
// fresh with the given base URI and initial admin when no snapshot exists.
func NewCertificateFactory(
	ctx context.Context,
	baseURI string,
	initialAdmin common.Address,
	store ports.StateStore,
	events ports.EventPublisher,
	logger *logrus.Logger,
) (*CertificateFactory, error) {
	f := &CertificateFactory{
		store:  store,
		events: events,
		log:    logger.WithField("component", "contract"),
	}

	snapshot, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load factory state: %w", err)
	}

	if snapshot == nil {
		f.state = newFactoryState(baseURI, initialAdmin)
		return f, nil
	}

	state := &factoryState{}
	if err := json.Unmarshal(snapshot, state); err != nil {
		return nil, fmt.Errorf("decode factory state: %w", err)
	}
	f.state = state
	f.log.WithFields(logrus.Fields{
		"universities": len(state.Universities),
		"certificates": len(state.Certificates),
	}).Info("restored factory state from snapshot")

	return f, nil
}

// UniversityID derives the registry key for an off-chain unique string, such
// as a database-generated UUID.
func UniversityID(seed string) common.Hash {
	return eth.PackedHash(seed)
}

// IsAdmin reports whether the address holds the admin capability.
func (f *CertificateFactory) IsAdmin(address common.Address) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state.Admins[address]
}

// GrantAdmin adds an address to the admin capability set. Admin-gated.
func (f *CertificateFactory) GrantAdmin(ctx context.Context, caller, grantee common.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.state.Admins[caller] {
		return core.ErrNotAdmin
	}
	f.state.Admins[grantee] = true
	f.commit(ctx)
	return nil
}

// RevokeAdmin removes an address from the admin capability set. Admin-gated.
func (f *CertificateFactory) RevokeAdmin(ctx context.Context, caller, target common.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.state.Admins[caller] {
		return core.ErrNotAdmin
	}
	delete(f.state.Admins, target)
	f.commit(ctx)
	return nil
}

// commit persists a snapshot of the committed state. The in-memory state is
// authoritative; a failed save is logged and retried on the next mutation
// rather than rolling back an already-validated transition.
// Callers must hold the write lock.
func (f *CertificateFactory) commit(ctx context.Context) {
	snapshot, err := json.Marshal(f.state)
	if err != nil {
		f.log.WithError(err).Error("failed to encode state snapshot")
		return
	}
	if err := f.store.Save(ctx, snapshot); err != nil {
		f.log.WithError(err).Error("failed to persist state snapshot")
	}
}

// emit publishes a contract event. Publish failures never fail the mutation.
func (f *CertificateFactory) emit(ctx context.Context, topic string, event interface{}) {
	if f.events == nil {
		return
	}
	if err := f.events.Publish(ctx, topic, event); err != nil {
		f.log.WithError(err).WithField("topic", topic).Warn("failed to publish event")
	}
}
