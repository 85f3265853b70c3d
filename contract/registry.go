package contract

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/team-hex/hexcert/core"
	"github.com/team-hex/hexcert/ports"
)

// AuthorizeUniversity creates a registry entry and grants it issuance rights.
// Admin-gated. Entries are permanent: an id that already exists cannot be
// re-registered, and a registrant may back at most one active university.
func (f *CertificateFactory) AuthorizeUniversity(
	ctx context.Context,
	caller common.Address,
	id common.Hash,
	registrant common.Address,
	directory string,
) (*core.University, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.state.Admins[caller] {
		return nil, core.ErrNotAdmin
	}
	if id == (common.Hash{}) {
		return nil, fmt.Errorf("%w: university id must not be zero", core.ErrInvalidAddress)
	}
	if registrant == (common.Address{}) {
		return nil, fmt.Errorf("%w: registrant must not be the zero address", core.ErrInvalidAddress)
	}
	if directory == "" {
		return nil, fmt.Errorf("%w: directory must not be empty", core.ErrInvalidChallenge)
	}
	if u, ok := f.state.Universities[id]; ok && u.Exists {
		return nil, core.ErrUniversityExists
	}
	if _, ok := f.state.Registrants[registrant]; ok {
		return nil, core.ErrRegistrantTaken
	}

	university := &core.University{
		ID:         id,
		Registrant: registrant,
		Directory:  directory,
		Index:      len(f.state.UniversityIDs),
		Exists:     true,
		Authorized: true,
	}
	f.state.Universities[id] = university
	f.state.Registrants[registrant] = id
	f.state.UniversityIDs = append(f.state.UniversityIDs, id)
	f.commit(ctx)

	f.log.WithFields(logrus.Fields{
		"university_id": id.Hex(),
		"registrant":    registrant.Hex(),
		"directory":     directory,
	}).Info("university registered")
	f.emit(ctx, ports.TopicUniversityRegistered, UniversityRegisteredEvent{
		UniversityID: id,
		Registrant:   registrant,
		Directory:    directory,
		Index:        university.Index,
	})

	record := *university
	return &record, nil
}

// RevokeUniversityAuthorization withdraws issuance rights without removing
// the registry entry. Admin-gated.
func (f *CertificateFactory) RevokeUniversityAuthorization(ctx context.Context, caller common.Address, id common.Hash) error {
	return f.setAuthorization(ctx, caller, id, false)
}

// RestoreUniversityAuthorization re-grants issuance rights to a previously
// revoked university. Admin-gated.
func (f *CertificateFactory) RestoreUniversityAuthorization(ctx context.Context, caller common.Address, id common.Hash) error {
	return f.setAuthorization(ctx, caller, id, true)
}

func (f *CertificateFactory) setAuthorization(ctx context.Context, caller common.Address, id common.Hash, authorized bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.state.Admins[caller] {
		return core.ErrNotAdmin
	}
	university, ok := f.state.Universities[id]
	if !ok || !university.Exists {
		return core.ErrUniversityNotFound
	}

	university.Authorized = authorized
	f.commit(ctx)

	topic := ports.TopicPermissionRevoked
	if authorized {
		topic = ports.TopicPermissionRestored
	}
	f.log.WithFields(logrus.Fields{
		"university_id": id.Hex(),
		"authorized":    authorized,
	}).Info("university authorization changed")
	f.emit(ctx, topic, UniversityPermissionEvent{UniversityID: id, Authorized: authorized})

	return nil
}

// ChangeUniversityRegistrant reassigns the registrant pointer of a
// university. The old registrant's reverse lookup is cleared. Admin-gated.
func (f *CertificateFactory) ChangeUniversityRegistrant(
	ctx context.Context,
	caller common.Address,
	id common.Hash,
	newRegistrant common.Address,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.state.Admins[caller] {
		return core.ErrNotAdmin
	}
	university, ok := f.state.Universities[id]
	if !ok || !university.Exists {
		return core.ErrUniversityNotFound
	}
	if newRegistrant == (common.Address{}) {
		return fmt.Errorf("%w: registrant must not be the zero address", core.ErrInvalidAddress)
	}
	if mapped, ok := f.state.Registrants[newRegistrant]; ok && mapped != id {
		return core.ErrRegistrantTaken
	}

	old := university.Registrant
	delete(f.state.Registrants, old)
	f.state.Registrants[newRegistrant] = id
	university.Registrant = newRegistrant
	f.commit(ctx)

	f.log.WithFields(logrus.Fields{
		"university_id":  id.Hex(),
		"old_registrant": old.Hex(),
		"new_registrant": newRegistrant.Hex(),
	}).Info("university registrant changed")
	f.emit(ctx, ports.TopicRegistrantChanged, UniversityRegistrantChangedEvent{
		UniversityID:  id,
		OldRegistrant: old,
		NewRegistrant: newRegistrant,
	})

	return nil
}

// GetUniversityID returns the university id the address is currently the
// registrant of, or the zero hash when the address backs no university.
func (f *CertificateFactory) GetUniversityID(registrant common.Address) common.Hash {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state.Registrants[registrant]
}

// GetUniversity returns a copy of the registry entry for the id.
func (f *CertificateFactory) GetUniversity(id common.Hash) (*core.University, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	university, ok := f.state.Universities[id]
	if !ok || !university.Exists {
		return nil, core.ErrUniversityNotFound
	}
	record := *university
	return &record, nil
}

// UniversityCount returns the number of registered universities.
func (f *CertificateFactory) UniversityCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.state.UniversityIDs)
}

// UniversityIDByIndex returns the id at the given position of the
// insertion-ordered enumeration.
func (f *CertificateFactory) UniversityIDByIndex(i int) (common.Hash, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if i < 0 || i >= len(f.state.UniversityIDs) {
		return common.Hash{}, core.ErrUniversityNotFound
	}
	return f.state.UniversityIDs[i], nil
}

// IsAuthorized reports whether the address is the registrant of a university
// that currently holds issuance rights.
func (f *CertificateFactory) IsAuthorized(registrant common.Address) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.isAuthorizedLocked(registrant)
}

func (f *CertificateFactory) isAuthorizedLocked(registrant common.Address) bool {
	id, ok := f.state.Registrants[registrant]
	if !ok {
		return false
	}
	university, ok := f.state.Universities[id]
	return ok && university.Exists && university.Authorized
}

// removeUniversityAt unlinks the enumeration entry at index i using
// swap-and-pop, keeping the list dense and every stored Index accurate.
// Registry entries are permanent today; this is the removal convention for
// when deletion is introduced.
func (f *CertificateFactory) removeUniversityAt(i int) {
	last := len(f.state.UniversityIDs) - 1
	if i < 0 || i > last {
		return
	}
	if i != last {
		moved := f.state.UniversityIDs[last]
		f.state.UniversityIDs[i] = moved
		f.state.Universities[moved].Index = i
	}
	f.state.UniversityIDs = f.state.UniversityIDs[:last]
}
