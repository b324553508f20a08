// Package service connects external services to the keychain, checking
// attribute schemas and running registered validators.
package service

import (
	"fmt"
	"sort"

	"github.com/sfdcale/cumulusci/config"
	"github.com/sfdcale/cumulusci/domain"
)

// Validator checks the attribute values of a service before it is
// stored. Validators are registered at compile time under a string key
// that service type configs reference.
type Validator func(attrs domain.ServiceAttributes) error

// Registry manages the registered service validators.
type Registry struct {
	validators map[string]Validator
}

// NewRegistry creates an empty validator registry.
func NewRegistry() *Registry {
	return &Registry{
		validators: make(map[string]Validator),
	}
}

// Register adds a validator under the given key.
func (r *Registry) Register(key string, v Validator) {
	r.validators[key] = v
}

// Get returns the validator registered under the given key.
func (r *Registry) Get(key string) (Validator, error) {
	v, ok := r.validators[key]
	if !ok {
		return nil, fmt.Errorf("unknown service validator: %q", key)
	}
	return v, nil
}

// Names returns the registered validator keys.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.validators))
	for name := range r.validators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry returns the built-in validators.
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	reg.Register("github", validateGitHub)
	reg.Register("marketing-cloud", validateMarketingCloud)
	return reg
}

func validateGitHub(attrs domain.ServiceAttributes) error {
	if attrs["token"] == "" {
		return fmt.Errorf("the github service requires a token")
	}
	return nil
}

func validateMarketingCloud(attrs domain.ServiceAttributes) error {
	if attrs["access_token"] == "" || attrs["tssd"] == "" {
		return fmt.Errorf("the marketing-cloud service requires access_token and tssd")
	}
	return nil
}

// Connector applies a service type's schema and validator, then stores
// the service in the keychain.
type Connector struct {
	keychain domain.Keychain
	registry *Registry
}

// NewConnector creates a connector on the given keychain and registry.
func NewConnector(keychain domain.Keychain, registry *Registry) *Connector {
	return &Connector{keychain: keychain, registry: registry}
}

// Connect validates attrs against the service type config and stores the
// service. Missing attributes fall back to their configured env vars;
// required attributes that remain empty are an error.
func (c *Connector) Connect(serviceType, name string, typeConfig config.ServiceTypeConfig, attrs domain.ServiceAttributes) error {
	resolved := domain.ServiceAttributes{}
	for attr, details := range typeConfig.Attributes {
		value := attrs[attr]
		if value == "" && details.DefaultEnv != "" {
			value = config.ExpandEnv("${" + details.DefaultEnv + "}")
		}
		if value == "" && details.Required {
			return fmt.Errorf("attribute %q is required for the %s service", attr, serviceType)
		}
		if value != "" {
			resolved[attr] = value
		}
	}

	if typeConfig.Validator != "" {
		validator, err := c.registry.Get(typeConfig.Validator)
		if err != nil {
			return err
		}
		if err := validator(resolved); err != nil {
			return fmt.Errorf("service validation failed: %w", err)
		}
	}

	return c.keychain.SetService(serviceType, name, resolved)
}
