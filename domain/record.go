package domain

import "gopkg.in/yaml.v3"

// Record is a raw dependency declaration as it appears in a project
// configuration file. Any zero-valued key means "not provided".
type Record struct {
	GitHub    string `yaml:"github,omitempty"`
	RepoOwner string `yaml:"repo_owner,omitempty"` // Deprecated - use the github key
	RepoName  string `yaml:"repo_name,omitempty"`  // Deprecated - use the github key

	Tag string `yaml:"tag,omitempty"`
	Ref string `yaml:"ref,omitempty"`

	Unmanaged       *bool  `yaml:"unmanaged,omitempty"`
	NamespaceInject string `yaml:"namespace_inject,omitempty"`
	NamespaceStrip  string `yaml:"namespace_strip,omitempty"`
	PasswordEnvName string `yaml:"password_env_name,omitempty"`

	Skip      StringList `yaml:"skip,omitempty"`
	Subfolder string     `yaml:"subfolder,omitempty"`
	ZipURL    string     `yaml:"zip_url,omitempty"`

	Namespace     string `yaml:"namespace,omitempty"`
	Version       string `yaml:"version,omitempty"`
	VersionID     string `yaml:"version_id,omitempty"`
	PackageName   string `yaml:"package_name,omitempty"`
	VersionNumber string `yaml:"version_number,omitempty"`
}

// StringList unmarshals from either a single YAML scalar or a sequence,
// so `skip: unpackaged/pre/foo` and `skip: [a, b]` both work.
type StringList []string

func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var single string
		if err := node.Decode(&single); err != nil {
			return err
		}
		*s = StringList{single}
		return nil
	}

	var many []string
	if err := node.Decode(&many); err != nil {
		return err
	}
	*s = StringList(many)
	return nil
}
