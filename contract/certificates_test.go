package contract

import (
	"context"
	"strconv"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/team-hex/hexcert/core"
	"github.com/team-hex/hexcert/ports"
)

func TestIssueCertificate(t *testing.T) {
	factory, events := newTestFactory(t)
	ctx := context.Background()

	_, err := factory.AuthorizeUniversity(ctx, admin, UniversityID("uni-1"), registrant, "uni-1/")
	require.NoError(t, err)

	certificate, err := factory.IssueCertificate(ctx, registrant, student)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), certificate.TokenID)
	assert.Equal(t, student, certificate.Owner)
	assert.Equal(t, UniversityID("uni-1"), certificate.UniversityID)

	assert.Equal(t, uint64(1), factory.TotalSupply())
	assert.Equal(t, uint64(1), factory.BalanceOf(student))
	assert.Contains(t, events.topics, ports.TopicCertificateIssued)

	owner, err := factory.OwnerOf(1)
	require.NoError(t, err)
	assert.Equal(t, student, owner)
}

func TestIssueCertificateUnauthorized(t *testing.T) {
	factory, _ := newTestFactory(t)
	ctx := context.Background()

	_, err := factory.AuthorizeUniversity(ctx, admin, UniversityID("uni-1"), registrant, "uni-1/")
	require.NoError(t, err)

	// Unknown caller.
	_, err = factory.IssueCertificate(ctx, outsider, student)
	assert.ErrorIs(t, err, core.ErrNotAuthorizedIssuer)
	assert.Equal(t, uint64(0), factory.TotalSupply())

	// Even the admin cannot mint without being a registrant.
	_, err = factory.IssueCertificate(ctx, admin, student)
	assert.ErrorIs(t, err, core.ErrNotAuthorizedIssuer)

	// A revoked university's registrant is rejected too.
	require.NoError(t, factory.RevokeUniversityAuthorization(ctx, admin, UniversityID("uni-1")))
	_, err = factory.IssueCertificate(ctx, registrant, student)
	assert.ErrorIs(t, err, core.ErrNotAuthorizedIssuer)
	assert.Equal(t, uint64(0), factory.TotalSupply())

	// Restoring re-enables minting.
	require.NoError(t, factory.RestoreUniversityAuthorization(ctx, admin, UniversityID("uni-1")))
	_, err = factory.IssueCertificate(ctx, registrant, student)
	assert.NoError(t, err)
}

func TestSequentialTokenIDsAndURIs(t *testing.T) {
	factory, _ := newTestFactory(t)
	ctx := context.Background()

	_, err := factory.AuthorizeUniversity(ctx, admin, UniversityID("uni-1"), registrant, "uni-1/")
	require.NoError(t, err)

	first, err := factory.IssueCertificate(ctx, registrant, student)
	require.NoError(t, err)
	second, err := factory.IssueCertificate(ctx, registrant, student)
	require.NoError(t, err)

	assert.Equal(t, first.TokenID+1, second.TokenID)
	assert.Equal(t, uint64(2), factory.BalanceOf(student))

	for _, certificate := range []*core.Certificate{first, second} {
		uri, err := factory.TokenURI(certificate.TokenID)
		require.NoError(t, err)
		assert.Equal(t, "ipfs://cid_123/uni-1/"+strconv.FormatUint(certificate.TokenID, 10)+".json", uri)
	}
}

func TestTokenURIsNamespacedPerUniversity(t *testing.T) {
	factory, _ := newTestFactory(t)
	ctx := context.Background()

	_, err := factory.AuthorizeUniversity(ctx, admin, UniversityID("uni-1"), registrant, "uni-1/")
	require.NoError(t, err)
	_, err = factory.AuthorizeUniversity(ctx, admin, UniversityID("uni-2"), outsider, "uni-2/")
	require.NoError(t, err)

	_, err = factory.IssueCertificate(ctx, registrant, student)
	require.NoError(t, err)
	_, err = factory.IssueCertificate(ctx, outsider, student)
	require.NoError(t, err)

	uri1, err := factory.TokenURI(1)
	require.NoError(t, err)
	uri2, err := factory.TokenURI(2)
	require.NoError(t, err)

	assert.Equal(t, "ipfs://cid_123/uni-1/1.json", uri1)
	assert.Equal(t, "ipfs://cid_123/uni-2/2.json", uri2)
}

func TestTokenURIUnminted(t *testing.T) {
	factory, _ := newTestFactory(t)

	_, err := factory.TokenURI(42)
	assert.ErrorIs(t, err, core.ErrCertificateNotFound)
	_, err = factory.OwnerOf(42)
	assert.ErrorIs(t, err, core.ErrCertificateNotFound)
}

func TestSetBaseURI(t *testing.T) {
	factory, _ := newTestFactory(t)
	ctx := context.Background()

	assert.ErrorIs(t, factory.SetBaseURI(ctx, outsider, "https://elsewhere/"), core.ErrNotAdmin)
	assert.Equal(t, "ipfs://cid_123/", factory.BaseURI())

	require.NoError(t, factory.SetBaseURI(ctx, admin, "https://elsewhere/"))
	assert.Equal(t, "https://elsewhere/", factory.BaseURI())

	_, err := factory.AuthorizeUniversity(ctx, admin, UniversityID("uni-1"), registrant, "uni-1/")
	require.NoError(t, err)
	_, err = factory.IssueCertificate(ctx, registrant, student)
	require.NoError(t, err)

	uri, err := factory.TokenURI(1)
	require.NoError(t, err)
	assert.Equal(t, "https://elsewhere/uni-1/1.json", uri)
}

func TestTransferCertificate(t *testing.T) {
	factory, events := newTestFactory(t)
	ctx := context.Background()

	_, err := factory.AuthorizeUniversity(ctx, admin, UniversityID("uni-1"), registrant, "uni-1/")
	require.NoError(t, err)
	_, err = factory.IssueCertificate(ctx, registrant, student)
	require.NoError(t, err)

	// Only the owner may transfer.
	err = factory.TransferCertificate(ctx, outsider, outsider, 1)
	assert.ErrorIs(t, err, core.ErrNotCertificateOwner)

	require.NoError(t, factory.TransferCertificate(ctx, student, outsider, 1))

	owner, err := factory.OwnerOf(1)
	require.NoError(t, err)
	assert.Equal(t, outsider, owner)
	assert.Equal(t, uint64(0), factory.BalanceOf(student))
	assert.Equal(t, uint64(1), factory.BalanceOf(outsider))
	assert.Contains(t, events.topics, ports.TopicCertificateMoved)

	err = factory.TransferCertificate(ctx, student, student, 99)
	assert.ErrorIs(t, err, core.ErrCertificateNotFound)
}

func TestIssueCertificateZeroReceiver(t *testing.T) {
	factory, _ := newTestFactory(t)
	ctx := context.Background()

	_, err := factory.AuthorizeUniversity(ctx, admin, UniversityID("uni-1"), registrant, "uni-1/")
	require.NoError(t, err)

	_, err = factory.IssueCertificate(ctx, registrant, common.Address{})
	assert.ErrorIs(t, err, core.ErrInvalidAddress)
	assert.Equal(t, uint64(0), factory.TotalSupply())
}
