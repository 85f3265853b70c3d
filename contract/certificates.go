package contract

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/team-hex/hexcert/core"
	"github.com/team-hex/hexcert/ports"
)

// IssueCertificate mints the next sequentially numbered certificate to the
// receiver. The caller must be the registrant of a currently-authorized
// university; its directory namespaces the certificate's metadata location.
func (f *CertificateFactory) IssueCertificate(
	ctx context.Context,
	caller common.Address,
	receiver common.Address,
) (*core.Certificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.isAuthorizedLocked(caller) {
		return nil, core.ErrNotAuthorizedIssuer
	}
	if receiver == (common.Address{}) {
		return nil, fmt.Errorf("%w: receiver must not be the zero address", core.ErrInvalidAddress)
	}

	universityID := f.state.Registrants[caller]
	tokenID := f.state.NextTokenID

	certificate := &core.Certificate{
		TokenID:      tokenID,
		Owner:        receiver,
		UniversityID: universityID,
	}
	f.state.Certificates[tokenID] = certificate
	f.state.Balances[receiver]++
	f.state.NextTokenID++
	f.commit(ctx)

	uri := f.tokenURILocked(certificate)
	f.log.WithFields(logrus.Fields{
		"token_id":      tokenID,
		"university_id": universityID.Hex(),
		"receiver":      receiver.Hex(),
	}).Info("certificate issued")
	f.emit(ctx, ports.TopicCertificateIssued, CertificateIssuedEvent{
		TokenID:      tokenID,
		UniversityID: universityID,
		From:         common.Address{},
		To:           receiver,
		TokenURI:     uri,
	})

	record := *certificate
	return &record, nil
}

// TransferCertificate moves ownership of a minted certificate. The caller
// must be the current owner.
func (f *CertificateFactory) TransferCertificate(
	ctx context.Context,
	caller common.Address,
	to common.Address,
	tokenID uint64,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	certificate, ok := f.state.Certificates[tokenID]
	if !ok {
		return core.ErrCertificateNotFound
	}
	if certificate.Owner != caller {
		return core.ErrNotCertificateOwner
	}
	if to == (common.Address{}) {
		return fmt.Errorf("%w: recipient must not be the zero address", core.ErrInvalidAddress)
	}

	f.state.Balances[caller]--
	f.state.Balances[to]++
	certificate.Owner = to
	f.commit(ctx)

	f.emit(ctx, ports.TopicCertificateMoved, CertificateTransferredEvent{
		TokenID: tokenID,
		From:    caller,
		To:      to,
	})

	return nil
}

// SetBaseURI mutates the global metadata prefix. Admin-gated.
func (f *CertificateFactory) SetBaseURI(ctx context.Context, caller common.Address, uri string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.state.Admins[caller] {
		return core.ErrNotAdmin
	}
	f.state.BaseURI = uri
	f.commit(ctx)
	return nil
}

// BaseURI returns the global metadata prefix.
func (f *CertificateFactory) BaseURI() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state.BaseURI
}

// TokenURI returns the deterministic metadata location of a minted
// certificate: baseURI + universityDirectory + tokenID + ".json".
func (f *CertificateFactory) TokenURI(tokenID uint64) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	certificate, ok := f.state.Certificates[tokenID]
	if !ok {
		return "", core.ErrCertificateNotFound
	}
	return f.tokenURILocked(certificate), nil
}

func (f *CertificateFactory) tokenURILocked(certificate *core.Certificate) string {
	university := f.state.Universities[certificate.UniversityID]
	return fmt.Sprintf("%s%s%d.json", f.state.BaseURI, university.Directory, certificate.TokenID)
}

// OwnerOf returns the current holder of a minted certificate.
func (f *CertificateFactory) OwnerOf(tokenID uint64) (common.Address, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	certificate, ok := f.state.Certificates[tokenID]
	if !ok {
		return common.Address{}, core.ErrCertificateNotFound
	}
	return certificate.Owner, nil
}

// BalanceOf returns how many certificates the address currently holds.
func (f *CertificateFactory) BalanceOf(owner common.Address) uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state.Balances[owner]
}

// TotalSupply returns the number of certificates minted so far.
func (f *CertificateFactory) TotalSupply() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return uint64(len(f.state.Certificates))
}
