// Package cli holds the per-project configuration consumed by the deploy-cli
// front end. Credentials never live in the file; they come from the
// environment.
package cli

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the per-project config looked up in the working
// directory.
const DefaultConfigFile = "staticdeploy.yaml"

var validate = validator.New()

var nameRegex = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,62}$`)

func init() {
	validate.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return nameRegex.MatchString(fl.Field().String())
	})
}

// ProjectConfig is the contents of staticdeploy.yaml.
type ProjectConfig struct {
	Project struct {
		Name        string `yaml:"name" validate:"required,slug"`
		Environment string `yaml:"environment"`
	} `yaml:"project"`

	S3 struct {
		Bucket   string `yaml:"bucket" validate:"required"`
		Region   string `yaml:"region" validate:"required"`
		Endpoint string `yaml:"endpoint,omitempty"`
	} `yaml:"s3"`

	// SiteURLTemplate overrides the public URL; "{project}" is replaced with
	// the project name.
	SiteURLTemplate string `yaml:"site_url_template,omitempty"`

	Retention struct {
		Keep int `yaml:"keep"`
	} `yaml:"retention"`
}

// DefaultProjectConfig returns a config pre-filled for init.
func DefaultProjectConfig(name, bucket, region string) *ProjectConfig {
	cfg := &ProjectConfig{}
	cfg.Project.Name = name
	cfg.Project.Environment = "production"
	cfg.S3.Bucket = bucket
	cfg.S3.Region = region
	cfg.Retention.Keep = 10
	return cfg
}

// LoadProjectConfig reads and validates a project config file.
func LoadProjectConfig(path string) (*ProjectConfig, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project config: %w", err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(body, &cfg); err != nil {
		return nil, fmt.Errorf("parse project config: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid project config: %w", err)
	}
	if cfg.Retention.Keep < 0 {
		return nil, fmt.Errorf("invalid project config: retention.keep must be >= 0")
	}
	return &cfg, nil
}

// Save writes the config file.
func (c *ProjectConfig) Save(path string) error {
	body, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal project config: %w", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write project config: %w", err)
	}
	return nil
}

// SiteURL returns the public URL for the project's live tree.
func (c *ProjectConfig) SiteURL() string {
	if c.SiteURLTemplate != "" {
		return strings.ReplaceAll(c.SiteURLTemplate, "{project}", c.Project.Name)
	}
	return fmt.Sprintf("http://%s.s3-website.%s.amazonaws.com/%s/current/",
		c.S3.Bucket, c.S3.Region, c.Project.Name)
}
