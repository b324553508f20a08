// Package keychain stores connected service credentials in a JSON file
// under the user's home directory.
package keychain

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/sfdcale/cumulusci/domain"
)

const (
	storeDirName  = ".cumulusci"
	storeFileName = "services.json"
	storeFileMode = 0o600
	storeDirMode  = 0o700
)

// FileKeychain implements domain.Keychain on a plain JSON file.
type FileKeychain struct {
	path string
}

type store struct {
	// Services maps service type -> service name -> attributes.
	Services map[string]map[string]domain.ServiceAttributes `json:"services"`
	// Defaults maps service type -> default service name.
	Defaults map[string]string `json:"defaults"`
}

// New creates a keychain at the default location (~/.cumulusci/services.json).
func New() (*FileKeychain, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate home directory: %w", err)
	}
	return NewAt(filepath.Join(home, storeDirName, storeFileName)), nil
}

// NewAt creates a keychain backed by the given file path.
func NewAt(path string) *FileKeychain {
	return &FileKeychain{path: path}
}

func (k *FileKeychain) load() (*store, error) {
	data, err := os.ReadFile(k.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &store{
				Services: map[string]map[string]domain.ServiceAttributes{},
				Defaults: map[string]string{},
			}, nil
		}
		return nil, fmt.Errorf("failed to read keychain: %w", err)
	}

	var s store
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse keychain: %w", err)
	}
	if s.Services == nil {
		s.Services = map[string]map[string]domain.ServiceAttributes{}
	}
	if s.Defaults == nil {
		s.Defaults = map[string]string{}
	}
	return &s, nil
}

func (k *FileKeychain) save(s *store) error {
	if err := os.MkdirAll(filepath.Dir(k.path), storeDirMode); err != nil {
		return fmt.Errorf("failed to create keychain directory: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(k.path, data, storeFileMode); err != nil {
		return fmt.Errorf("failed to write keychain: %w", err)
	}
	return nil
}

func (k *FileKeychain) SetService(serviceType, name string, attrs domain.ServiceAttributes) error {
	s, err := k.load()
	if err != nil {
		return err
	}
	if s.Services[serviceType] == nil {
		s.Services[serviceType] = map[string]domain.ServiceAttributes{}
	}
	s.Services[serviceType][name] = attrs

	// First service of a type becomes its default.
	if _, ok := s.Defaults[serviceType]; !ok {
		s.Defaults[serviceType] = name
	}
	return k.save(s)
}

func (k *FileKeychain) GetService(serviceType, name string) (domain.ServiceAttributes, error) {
	s, err := k.load()
	if err != nil {
		return nil, err
	}

	services, ok := s.Services[serviceType]
	if !ok || len(services) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrServiceNotConfigured, serviceType)
	}

	if name == "" {
		name = s.Defaults[serviceType]
	}
	attrs, ok := services[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s:%s", domain.ErrServiceNotConfigured, serviceType, name)
	}
	return attrs, nil
}

func (k *FileKeychain) ListServices() (map[string][]string, error) {
	s, err := k.load()
	if err != nil {
		return nil, err
	}

	result := make(map[string][]string, len(s.Services))
	for serviceType, services := range s.Services {
		names := make([]string, 0, len(services))
		for name := range services {
			names = append(names, name)
		}
		sort.Strings(names)
		result[serviceType] = names
	}
	return result, nil
}

func (k *FileKeychain) SetDefaultService(serviceType, name string) error {
	s, err := k.load()
	if err != nil {
		return err
	}
	if _, ok := s.Services[serviceType][name]; !ok {
		return fmt.Errorf("%w: %s:%s", domain.ErrServiceNotConfigured, serviceType, name)
	}
	s.Defaults[serviceType] = name
	return k.save(s)
}

func (k *FileKeychain) DefaultServiceName(serviceType string) (string, error) {
	s, err := k.load()
	if err != nil {
		return "", err
	}
	name, ok := s.Defaults[serviceType]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrServiceNotConfigured, serviceType)
	}
	return name, nil
}

func (k *FileKeychain) RenameService(serviceType, oldName, newName string) error {
	s, err := k.load()
	if err != nil {
		return err
	}
	attrs, ok := s.Services[serviceType][oldName]
	if !ok {
		return fmt.Errorf("%w: %s:%s", domain.ErrServiceNotConfigured, serviceType, oldName)
	}

	s.Services[serviceType][newName] = attrs
	delete(s.Services[serviceType], oldName)
	if s.Defaults[serviceType] == oldName {
		s.Defaults[serviceType] = newName
	}
	return k.save(s)
}

func (k *FileKeychain) RemoveService(serviceType, name string) error {
	s, err := k.load()
	if err != nil {
		return err
	}
	if _, ok := s.Services[serviceType][name]; !ok {
		return fmt.Errorf("%w: %s:%s", domain.ErrServiceNotConfigured, serviceType, name)
	}

	delete(s.Services[serviceType], name)
	if len(s.Services[serviceType]) == 0 {
		delete(s.Services, serviceType)
	}
	if s.Defaults[serviceType] == name {
		delete(s.Defaults, serviceType)
	}
	return k.save(s)
}
