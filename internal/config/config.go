package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	// Artifact store (S3 or S3-compatible endpoint).
	Bucket      string
	Region      string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	// Discovery service.
	TargetsDir          string
	DiscoveryInterval   time.Duration
	PrometheusReloadURL string
	HTTPListenAddr      string

	// SiteURLTemplate builds the public URL for a project's live tree.
	// The literal "{project}" is replaced with the project name. When empty,
	// the S3 website endpoint for Bucket/Region is used.
	SiteURLTemplate string

	Environment string
	ServiceName string
	LogLevel    string
}

func Load() (*Config, error) {
	interval, err := time.ParseDuration(getEnv("DISCOVERY_INTERVAL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("parse DISCOVERY_INTERVAL: %w", err)
	}

	cfg := &Config{
		Bucket:              getEnv("DEPLOY_BUCKET", ""),
		Region:              getEnv("AWS_REGION", "ap-south-1"),
		S3Endpoint:          getEnv("S3_ENDPOINT", ""),
		S3AccessKey:         getEnv("S3_ACCESS_KEY", os.Getenv("AWS_ACCESS_KEY_ID")),
		S3SecretKey:         getEnv("S3_SECRET_KEY", os.Getenv("AWS_SECRET_ACCESS_KEY")),
		TargetsDir:          getEnv("TARGETS_DIR", "/opt/monitoring/targets"),
		DiscoveryInterval:   interval,
		PrometheusReloadURL: getEnv("PROMETHEUS_RELOAD_URL", ""),
		HTTPListenAddr:      getEnv("HTTP_LISTEN_ADDR", ":8082"),
		SiteURLTemplate:     getEnv("SITE_URL_TEMPLATE", ""),
		Environment:         getEnv("ENVIRONMENT", "production"),
		ServiceName:         getEnv("SERVICE_NAME", ""),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

// Validate checks that the fields required by the given role are set.
func (c *Config) Validate(role string) error {
	var missing []string

	required := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
		}
	}

	switch role {
	case "discovery-service":
		required("DEPLOY_BUCKET", c.Bucket)
		required("AWS_REGION", c.Region)
		required("TARGETS_DIR", c.TargetsDir)
		required("HTTP_LISTEN_ADDR", c.HTTPListenAddr)
		if c.DiscoveryInterval <= 0 {
			missing = append(missing, "DISCOVERY_INTERVAL")
		}
	case "deploy-cli":
		required("AWS_REGION", c.Region)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// SiteURL returns the public URL for a project's current/ tree.
func (c *Config) SiteURL(project string) string {
	if c.SiteURLTemplate != "" {
		return strings.ReplaceAll(c.SiteURLTemplate, "{project}", project)
	}
	return fmt.Sprintf("http://%s.s3-website.%s.amazonaws.com/%s/current/", c.Bucket, c.Region, project)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
