package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Provider constants for storage backends.
const (
	ProviderLocal = "local"
	ProviderS3    = "s3"
	ProviderAzure = "azure"
)

// Hash algorithms accepted by HashAlgorithm.
const (
	HashSHA256  = "sha256"
	HashBLAKE2b = "blake2b"
)

// Default configuration values.
const (
	DefaultProvider      = ProviderLocal
	DefaultPublicPath    = "./data/public"
	DefaultPrivatePath   = "./data/private"
	DefaultTempPath      = "./data/temp"
	DefaultHashAlgorithm = HashSHA256
	DefaultMaxFileSize   = int64(100 * 1024 * 1024) // 100 MB
)

// RootConfig locates the root directory of one storage class.
type RootConfig struct {
	Path string `mapstructure:"path" json:"path"`
}

// S3Config is reserved for an S3-compatible backend.
type S3Config struct {
	Bucket   string `mapstructure:"bucket" json:"bucket"`
	Region   string `mapstructure:"region" json:"region"`
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
}

// AzureConfig is reserved for an Azure Blob backend.
type AzureConfig struct {
	Account   string `mapstructure:"account" json:"account"`
	Container string `mapstructure:"container" json:"container"`
}

// Config holds storage configuration.
type Config struct {
	// Provider selects the backend implementation. Only "local" is implemented.
	Provider string `mapstructure:"provider" json:"provider"`

	Public  RootConfig `mapstructure:"public" json:"public"`
	Private RootConfig `mapstructure:"private" json:"private"`
	Temp    RootConfig `mapstructure:"temp" json:"temp"`

	// HashAlgorithm selects the ContentHash digest: "sha256" or "blake2b".
	HashAlgorithm string `mapstructure:"hash_algorithm" json:"hash_algorithm"`

	// MaxFileSize is the maximum accepted upload size in bytes.
	MaxFileSize int64 `mapstructure:"max_file_size" json:"max_file_size"`

	// AllowedMimeTypes limits uploads to these media types. Entries are full
	// types such as "application/pdf" or wildcards such as "image/*". Empty
	// accepts everything.
	AllowedMimeTypes []string `mapstructure:"allowed_mime_types" json:"allowed_mime_types"`

	// RecordContentHash stores the content hash on upload.
	RecordContentHash bool `mapstructure:"record_content_hash" json:"record_content_hash"`

	S3    S3Config    `mapstructure:"s3" json:"s3"`
	Azure AzureConfig `mapstructure:"azure" json:"azure"`
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
	if c.Public.Path == "" {
		c.Public.Path = DefaultPublicPath
	}
	if c.Private.Path == "" {
		c.Private.Path = DefaultPrivatePath
	}
	if c.Temp.Path == "" {
		c.Temp.Path = DefaultTempPath
	}
	if c.HashAlgorithm == "" {
		c.HashAlgorithm = DefaultHashAlgorithm
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = DefaultMaxFileSize
	}
}

// Root returns the configured root for class.
func (c *Config) Root(class Class) string {
	switch class {
	case ClassPublic:
		return c.Public.Path
	case ClassPrivate:
		return c.Private.Path
	case ClassTemp:
		return c.Temp.Path
	}
	return ""
}

// Validate checks that the configuration is valid for the selected provider.
func (c *Config) Validate() error {
	var errs []error
	switch c.Provider {
	case ProviderLocal:
		for _, class := range Classes() {
			if c.Root(class) == "" {
				errs = append(errs, fmt.Errorf("storage: %s.path is required for local provider", class))
			}
		}
		errs = append(errs, c.checkRootsDisjoint()...)
	case ProviderS3, ProviderAzure:
		errs = append(errs, fmt.Errorf("storage: provider %q is not implemented", c.Provider))
	default:
		errs = append(errs, fmt.Errorf("storage: unsupported provider %q", c.Provider))
	}

	switch c.HashAlgorithm {
	case HashSHA256, HashBLAKE2b:
	default:
		errs = append(errs, fmt.Errorf("storage: unsupported hash_algorithm %q", c.HashAlgorithm))
	}
	if c.MaxFileSize <= 0 {
		errs = append(errs, errors.New("storage: max_file_size must be > 0"))
	}
	for _, t := range c.AllowedMimeTypes {
		if major, minor, ok := strings.Cut(strings.TrimSpace(t), "/"); !ok || major == "" || minor == "" {
			errs = append(errs, fmt.Errorf("storage: allowed_mime_types entry %q is not a type/subtype", t))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("storage: invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// checkRootsDisjoint compares the absolute, cleaned roots so that "./x" and
// "x" count as one directory, and rejects a root nested inside another.
func (c *Config) checkRootsDisjoint() []error {
	var errs []error
	roots := make(map[Class]string, 3)
	for _, class := range Classes() {
		if p := c.Root(class); p != "" {
			abs, err := filepath.Abs(p)
			if err != nil {
				errs = append(errs, fmt.Errorf("storage: %s.path: %w", class, err))
				continue
			}
			roots[class] = abs
		}
	}
	classes := Classes()
	for i, a := range classes {
		for _, b := range classes[i+1:] {
			ra, okA := roots[a]
			rb, okB := roots[b]
			if !okA || !okB {
				continue
			}
			switch {
			case ra == rb:
				errs = append(errs, fmt.Errorf("storage: %s and %s share the root %q", a, b, ra))
			case within(ra, rb):
				errs = append(errs, fmt.Errorf("storage: %s root %q is nested inside the %s root", a, ra, b))
			case within(rb, ra):
				errs = append(errs, fmt.Errorf("storage: %s root %q is nested inside the %s root", b, rb, a))
			}
		}
	}
	return errs
}

// within reports whether child lies strictly below parent.
func within(child, parent string) bool {
	if !strings.HasSuffix(parent, string(filepath.Separator)) {
		parent += string(filepath.Separator)
	}
	return strings.HasPrefix(child, parent)
}
