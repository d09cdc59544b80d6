package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DEPLOY_BUCKET", "AWS_REGION", "S3_ENDPOINT",
		"S3_ACCESS_KEY", "S3_SECRET_KEY", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY",
		"TARGETS_DIR", "DISCOVERY_INTERVAL", "PROMETHEUS_RELOAD_URL", "HTTP_LISTEN_ADDR",
		"SITE_URL_TEMPLATE", "ENVIRONMENT", "SERVICE_NAME", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ap-south-1", cfg.Region)
	assert.Equal(t, "/opt/monitoring/targets", cfg.TargetsDir)
	assert.Equal(t, 30*time.Second, cfg.DiscoveryInterval)
	assert.Equal(t, ":8082", cfg.HTTPListenAddr)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.Bucket)
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEPLOY_BUCKET", "sites-prod")
	t.Setenv("AWS_REGION", "eu-central-1")
	t.Setenv("DISCOVERY_INTERVAL", "5m")
	t.Setenv("S3_ENDPOINT", "http://minio.internal:9000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sites-prod", cfg.Bucket)
	assert.Equal(t, "eu-central-1", cfg.Region)
	assert.Equal(t, 5*time.Minute, cfg.DiscoveryInterval)
	assert.Equal(t, "http://minio.internal:9000", cfg.S3Endpoint)
}

func TestLoad_AWSCredentialFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIATEST")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "AKIATEST", cfg.S3AccessKey)
	assert.Equal(t, "secret", cfg.S3SecretKey)
}

func TestLoad_BadInterval(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCOVERY_INTERVAL", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DISCOVERY_INTERVAL")
}

func TestValidate_DiscoveryService(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.Validate("discovery-service")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEPLOY_BUCKET")

	cfg.Bucket = "sites-prod"
	assert.NoError(t, cfg.Validate("discovery-service"))
}

func TestValidate_DeployCLI(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	// Bucket and region come from the project file; only region is required
	// from the environment defaults.
	assert.NoError(t, cfg.Validate("deploy-cli"))
}

func TestSiteURL(t *testing.T) {
	cfg := &Config{Bucket: "sites-prod", Region: "ap-south-1"}
	assert.Equal(t, "http://sites-prod.s3-website.ap-south-1.amazonaws.com/blog/current/", cfg.SiteURL("blog"))

	cfg.SiteURLTemplate = "https://{project}.example.com/"
	assert.Equal(t, "https://blog.example.com/", cfg.SiteURL("blog"))
}
