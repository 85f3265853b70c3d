package ports

import "context"

// Event topics. Registry and certificate topics mirror the contract events.
const (
	TopicLogout               = "hexcert.auth.logout"
	TopicUniversityRegistered = "hexcert.registry.university_registered"
	TopicPermissionRevoked    = "hexcert.registry.permission_revoked"
	TopicPermissionRestored   = "hexcert.registry.permission_restored"
	TopicRegistrantChanged    = "hexcert.registry.registrant_changed"
	TopicCertificateIssued    = "hexcert.certificates.issued"
	TopicCertificateMoved     = "hexcert.certificates.transferred"
)

// EventPublisher publishes domain events to notify other instances.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event interface{}) error
}
