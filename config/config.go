package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	logger "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/sfdcale/cumulusci/domain"
)

// Config is the top-level project configuration (cumulusci.yml).
type Config struct {
	Project  ProjectConfig                `yaml:"project"`
	Services map[string]ServiceTypeConfig `yaml:"services"`
	Tasks    TasksConfig                  `yaml:"tasks"`
}

// ProjectConfig describes the project and its declared dependencies.
type ProjectConfig struct {
	Name         string          `yaml:"name"`
	Package      PackageConfig   `yaml:"package"`
	Git          GitConfig       `yaml:"git"`
	Dependencies []domain.Record `yaml:"dependencies"`

	// DependencyResolution selects the named resolution strategy order
	// ("production", "beta" or "unmanaged-head"). Defaults to production.
	DependencyResolution string `yaml:"dependency_resolution"`
}

// PackageConfig identifies the project's own package.
type PackageConfig struct {
	Name       string `yaml:"name"`
	Namespace  string `yaml:"namespace"`
	APIVersion string `yaml:"api_version"`
}

// GitConfig holds tag naming conventions.
type GitConfig struct {
	DefaultBranch string `yaml:"default_branch"`
	PrefixRelease string `yaml:"prefix_release"`
	PrefixBeta    string `yaml:"prefix_beta"`
}

// ServiceTypeConfig declares a connectable service type and its
// attribute schema.
type ServiceTypeConfig struct {
	Description string                     `yaml:"description"`
	Attributes  map[string]AttributeConfig `yaml:"attributes"`

	// Validator is the registry key of a compile-time registered
	// validation function run when the service is connected.
	Validator string `yaml:"validator"`
}

// AttributeConfig describes one attribute of a service type.
type AttributeConfig struct {
	Description string `yaml:"description"`
	Required    bool   `yaml:"required"`
	DefaultEnv  string `yaml:"default_env"` // env var consulted when the value is omitted
}

// TasksConfig holds per-task option defaults.
type TasksConfig struct {
	MarketingCloud MarketingCloudConfig `yaml:"marketing_cloud"`
	DataGeneration DataGenerationConfig `yaml:"data_generation"`
}

// MarketingCloudConfig configures the Marketing Cloud deploy task.
type MarketingCloudConfig struct {
	Endpoint string `yaml:"endpoint"`
}

// DataGenerationConfig configures the synthetic data generation task.
type DataGenerationConfig struct {
	Executable string `yaml:"executable"`
}

// envVarPattern matches ${VAR_NAME} placeholders.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)}`)

// Load reads and parses a project configuration file, expanding
// environment variable references.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	var cfg Config
	if unmarshalErr := yaml.Unmarshal([]byte(ExpandEnv(string(data))), &cfg); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", unmarshalErr)
	}

	applyDefaults(&cfg)

	if validateErr := validate(&cfg); validateErr != nil {
		return nil, validateErr
	}

	return &cfg, nil
}

// FindConfigFile searches for a project configuration file in standard
// locations. Returns the path to the first file found.
func FindConfigFile() (string, error) {
	locations := []string{".", ".config", "configs"}
	if homeDir, err := os.UserHomeDir(); err == nil {
		locations = append(locations, homeDir, filepath.Join(homeDir, ".config"))
	}

	patterns := []string{
		"cumulusci.yml",
		"cumulusci.yaml",
		".cumulusci.yml",
	}

	for _, loc := range locations {
		for _, pat := range patterns {
			p := filepath.Join(loc, pat)
			if _, statErr := os.Stat(p); statErr == nil {
				return p, nil
			}
		}
	}

	return "", errors.New("config file not found in default locations")
}

// ExpandEnv replaces ${VAR} references with environment values, warning
// about unset variables.
func ExpandEnv(raw string) string {
	return envVarPattern.ReplaceAllStringFunc(raw, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		logger.Warnf("Environment variable %q is not set", varName)
		return ""
	})
}

// ParsePairs parses "KEY1:val1,KEY2:val2" option strings into a map.
func ParsePairs(raw string) (map[string]string, error) {
	pairs := map[string]string{}
	if strings.TrimSpace(raw) == "" {
		return pairs, nil
	}
	for _, item := range strings.Split(raw, ",") {
		key, value, found := strings.Cut(item, ":")
		if !found || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid key:value pair %q", item)
		}
		pairs[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return pairs, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Project.Git.DefaultBranch == "" {
		cfg.Project.Git.DefaultBranch = "main"
	}
	if cfg.Project.Git.PrefixRelease == "" {
		cfg.Project.Git.PrefixRelease = "release/"
	}
	if cfg.Project.Git.PrefixBeta == "" {
		cfg.Project.Git.PrefixBeta = "beta/"
	}
	if cfg.Project.DependencyResolution == "" {
		cfg.Project.DependencyResolution = "production"
	}
	if cfg.Tasks.MarketingCloud.Endpoint == "" {
		cfg.Tasks.MarketingCloud.Endpoint = "https://mc-package-manager.herokuapp.com"
	}
	if cfg.Tasks.DataGeneration.Executable == "" {
		cfg.Tasks.DataGeneration.Executable = "snowfakery"
	}

	if cfg.Services == nil {
		cfg.Services = map[string]ServiceTypeConfig{}
	}
	for serviceType, typeConfig := range builtinServices() {
		if _, declared := cfg.Services[serviceType]; !declared {
			cfg.Services[serviceType] = typeConfig
		}
	}
}

// builtinServices returns the service types every project can connect
// without declaring them. Projects may override a type to change its
// attribute schema.
func builtinServices() map[string]ServiceTypeConfig {
	return map[string]ServiceTypeConfig{
		"github": {
			Description: "GitHub repository access",
			Attributes: map[string]AttributeConfig{
				"token": {
					Description: "Personal access token with repo scope",
					Required:    true,
					DefaultEnv:  "GITHUB_TOKEN",
				},
			},
			Validator: "github",
		},
		"marketing-cloud": {
			Description: "Marketing Cloud package manager access",
			Attributes: map[string]AttributeConfig{
				"access_token": {
					Description: "OAuth access token",
					Required:    true,
					DefaultEnv:  "MC_ACCESS_TOKEN",
				},
				"tssd": {
					Description: "Tenant-specific subdomain",
					Required:    true,
					DefaultEnv:  "MC_TSSD",
				},
			},
			Validator: "marketing-cloud",
		},
	}
}

func validate(cfg *Config) error {
	if cfg.Project.Name == "" {
		return errors.New("project.name is required")
	}

	for serviceType, svc := range cfg.Services {
		for attr := range svc.Attributes {
			if attr == "" {
				return fmt.Errorf("services.%s has an attribute with an empty name", serviceType)
			}
		}
	}

	return nil
}

// ParseRemoteProject parses the declaration file of a remote repository
// into the subset dependency processing needs. The schema is the same
// as the local cumulusci.yml.
func ParseRemoteProject(data []byte) (*domain.RemoteProject, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse remote project config: %w", err)
	}
	applyDefaults(&cfg)

	return &domain.RemoteProject{
		Name:             cfg.Project.Name,
		PackageName:      cfg.Project.Package.Name,
		Namespace:        cfg.Project.Package.Namespace,
		GitPrefixRelease: cfg.Project.Git.PrefixRelease,
		GitPrefixBeta:    cfg.Project.Git.PrefixBeta,
		Dependencies:     cfg.Project.Dependencies,
	}, nil
}
