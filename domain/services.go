package domain

import "errors"

// ErrServiceNotConfigured is returned by keychains when a requested
// service type or named service is not connected.
var ErrServiceNotConfigured = errors.New("service not configured")

// ServiceAttributes holds the attribute values of one connected service.
type ServiceAttributes map[string]string

// Keychain stores connected service credentials. Encryption at rest is
// an implementation concern of the keychain, not of its callers.
type Keychain interface {
	// SetService stores (or overwrites) a named service of a type.
	SetService(serviceType, name string, attrs ServiceAttributes) error

	// GetService returns a named service, or the default service of the
	// type when name is empty.
	GetService(serviceType, name string) (ServiceAttributes, error)

	// ListServices maps each configured service type to its service
	// names, sorted.
	ListServices() (map[string][]string, error)

	// SetDefaultService marks a named service as the default for its type.
	SetDefaultService(serviceType, name string) error

	// DefaultServiceName returns the default service name for a type.
	DefaultServiceName(serviceType string) (string, error)

	// RenameService renames a service, carrying the default marker along.
	RenameService(serviceType, oldName, newName string) error

	// RemoveService deletes a named service.
	RemoveService(serviceType, name string) error
}
