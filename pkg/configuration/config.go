package configuration

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/eidverify/oid4vp/pkg/helpers"

	"github.com/creasty/defaults"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// LogConfig controls how pkg/logger.New is invoked.
type LogConfig struct {
	// Production switches the logger from a human-readable console
	// encoder to JSON, matching pkg/logger.New's production flag.
	Production bool `yaml:"production" json:"production"`

	// Path is an optional directory. When set, pkg/logger.New creates it
	// and writes only to <Path>/<name>.log instead of zap's default
	// output (stderr). Empty keeps the default output.
	Path string `yaml:"path" json:"path"`
}

// Cfg is the verifier's runtime configuration, loaded from a single YAML
// file named by the VERIFIER_CONFIG_YAML environment variable.
type Cfg struct {
	// ClientID is the client_id this verifier presents itself as in
	// Authorization Requests.
	ClientID string `yaml:"client_id" json:"client_id" validate:"required"`

	// ClientIDScheme selects how ClientID is authenticated by the
	// wallet (e.g. "x509_san_dns", "did", "redirect_uri").
	ClientIDScheme string `yaml:"client_id_scheme" json:"client_id_scheme" validate:"required"`

	// ResponseURI is where the wallet posts the Authorization Response.
	ResponseURI string `yaml:"response_uri" json:"response_uri" validate:"omitempty,url"`

	// RedirectURI is used instead of ResponseURI for same-device,
	// redirect-based flows. One of ResponseURI/RedirectURI is required
	// per exchange but both may be configured.
	RedirectURI string `yaml:"redirect_uri" json:"redirect_uri"`

	// TrustAnchorPaths lists PEM files containing trusted root
	// certificates for issuer and holder binding validation.
	TrustAnchorPaths []string `yaml:"trust_anchor_paths" json:"trust_anchor_paths" validate:"required,min=1"`

	// AllowedIssuerRoles restricts which x5c roles are accepted as
	// credential issuers. Empty means all roles under a trusted root
	// are accepted.
	AllowedIssuerRoles []string `yaml:"allowed_issuer_roles" json:"allowed_issuer_roles"`

	// PresentationRequestsDir is a directory of YAML template files
	// loaded by LoadPresentationRequests.
	PresentationRequestsDir string `yaml:"presentation_requests_dir" json:"presentation_requests_dir" validate:"required"`

	// KeyResolverCacheTTL bounds how long a resolved verification
	// method's public key is cached before being re-fetched.
	KeyResolverCacheTTL time.Duration `yaml:"key_resolver_cache_ttl" json:"key_resolver_cache_ttl" default:"15m"`

	// SessionTTL bounds how long an in-flight exchange may sit between
	// REQUEST_BUILT and RESPONSE_RECEIVED before it is evicted.
	SessionTTL time.Duration `yaml:"session_ttl" json:"session_ttl" default:"10m"`

	// Log configures the process logger.
	Log LogConfig `yaml:"log" json:"log"`
}

type envVars struct {
	ConfigYAML string `envconfig:"VERIFIER_CONFIG_YAML" required:"true"`
}

// New reads the YAML file named by VERIFIER_CONFIG_YAML and validates it.
func New() (*Cfg, error) {
	env := envVars{}
	if err := envconfig.Process("", &env); err != nil {
		return nil, err
	}

	return Load(env.ConfigYAML)
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Cfg, error) {
	cfg := &Cfg{}
	if err := defaults.Set(cfg); err != nil {
		return nil, err
	}

	configFile, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	fileInfo, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if fileInfo.IsDir() {
		return nil, errors.New("config is a folder")
	}

	if err := yaml.Unmarshal(configFile, cfg); err != nil {
		return nil, err
	}

	if err := helpers.CheckSimple(cfg); err != nil {
		return nil, err
	}

	if cfg.ResponseURI == "" && cfg.RedirectURI == "" {
		return nil, helpers.NewError("INVALID_CONFIGURATION")
	}

	return cfg, nil
}
