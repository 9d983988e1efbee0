package storage

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/kbukum/filevault/errors"
)

// memBackend is a minimal in-memory Backend for decorator tests.
type memBackend struct {
	data  map[string][]byte
	calls []string
}

func newMemBackend() *memBackend {
	return &memBackend{data: make(map[string][]byte)}
}

func (m *memBackend) record(op string) { m.calls = append(m.calls, op) }

func (m *memBackend) Save(_ context.Context, path string, r io.Reader) (int64, error) {
	m.record("save")
	b, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	m.data[path] = b
	return int64(len(b)), nil
}

func (m *memBackend) Get(_ context.Context, path string) (io.ReadCloser, error) {
	m.record("get")
	b, ok := m.data[path]
	if !ok {
		return nil, errors.ObjectNotFound(path)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memBackend) Delete(_ context.Context, path string) error {
	m.record("delete")
	delete(m.data, path)
	return nil
}

func (m *memBackend) Copy(_ context.Context, src, dst string) error {
	m.record("copy")
	b, ok := m.data[src]
	if !ok {
		return errors.ObjectNotFound(src)
	}
	m.data[dst] = append([]byte(nil), b...)
	return nil
}

func (m *memBackend) Move(ctx context.Context, src, dst string) error {
	if err := m.Copy(ctx, src, dst); err != nil {
		return err
	}
	delete(m.data, src)
	return nil
}

func (m *memBackend) Exists(_ context.Context, path string) (bool, error) {
	_, ok := m.data[path]
	return ok, nil
}

func (m *memBackend) DirectoryExists(context.Context, string) (bool, error) { return false, nil }
func (m *memBackend) CreateDirectory(context.Context, string) error         { return nil }
func (m *memBackend) DeleteDirectory(context.Context, string, bool) error   { return nil }

func (m *memBackend) Size(_ context.Context, path string) (int64, error) {
	b, ok := m.data[path]
	if !ok {
		return 0, errors.ObjectNotFound(path)
	}
	return int64(len(b)), nil
}

func (m *memBackend) Stat(ctx context.Context, path string) (ObjectInfo, error) {
	n, err := m.Size(ctx, path)
	if err != nil {
		return ObjectInfo{}, err
	}
	return ObjectInfo{Path: path, Size: n}, nil
}

func (m *memBackend) ContentHash(context.Context, string) (string, error) { return "", nil }

func TestParseClass(t *testing.T) {
	for _, c := range Classes() {
		got, err := ParseClass(string(c))
		if err != nil || got != c {
			t.Errorf("ParseClass(%q) = %q, %v", c, got, err)
		}
	}
	if _, err := ParseClass("archive"); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestSet_For(t *testing.T) {
	pub, priv := newMemBackend(), newMemBackend()
	set := NewSet(pub, priv, nil)

	if b, err := set.For(ClassPublic); err != nil || b != Backend(pub) {
		t.Errorf("public: %v, %v", b, err)
	}
	if b, err := set.For(ClassPrivate); err != nil || b != Backend(priv) {
		t.Errorf("private: %v, %v", b, err)
	}
	if _, err := set.For(ClassTemp); !errors.HasCode(err, errors.ErrCodeServiceUnavailable) {
		t.Errorf("missing temp backend: got %v", err)
	}
	if _, err := set.For(Class("bogus")); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("bogus class: got %v", err)
	}
}

func TestConfig_DefaultsAndValidate(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Provider != ProviderLocal || cfg.HashAlgorithm != HashSHA256 || cfg.MaxFileSize != DefaultMaxFileSize {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"s3 placeholder", func(c *Config) { c.Provider = ProviderS3 }, "not implemented"},
		{"azure placeholder", func(c *Config) { c.Provider = ProviderAzure }, "not implemented"},
		{"unknown provider", func(c *Config) { c.Provider = "ftp" }, "unsupported provider"},
		{"bad hash", func(c *Config) { c.HashAlgorithm = "md5" }, "hash_algorithm"},
		{"shared roots", func(c *Config) { c.Temp.Path = c.Public.Path }, "share the root"},
		{"same root spelled differently", func(c *Config) {
			c.Public.Path = "data/x"
			c.Temp.Path = "./data/x/"
		}, "share the root"},
		{"nested root", func(c *Config) {
			c.Private.Path = "data/vault"
			c.Temp.Path = "data/vault/tmp"
		}, "nested inside the private root"},
		{"parent of another root", func(c *Config) {
			c.Public.Path = "data/vault/public"
			c.Private.Path = "data/vault"
		}, "nested inside the private root"},
		{"missing root", func(c *Config) { c.Private.Path = "" }, "private.path"},
		{"bad mime entry", func(c *Config) { c.AllowedMimeTypes = []string{"image/png", "pdf"} }, "allowed_mime_types"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Config{}
			c.ApplyDefaults()
			tt.mutate(&c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestInstrument_PassesThrough(t *testing.T) {
	mem := newMemBackend()
	b := Instrument(mem, ClassPrivate, nil)
	ctx := context.Background()

	n, err := b.Save(ctx, "a.txt", strings.NewReader("abc"))
	if err != nil || n != 3 {
		t.Fatalf("Save = %d, %v", n, err)
	}
	rc, err := b.Get(ctx, "a.txt")
	if err != nil {
		t.Fatal(err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "abc" {
		t.Errorf("got %q", data)
	}
	if _, err := b.Get(ctx, "missing"); !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Errorf("errors must pass through unchanged, got %v", err)
	}
	if got := strings.Join(mem.calls, ","); got != "save,get,get" {
		t.Errorf("calls = %s", got)
	}
	if Instrument(nil, ClassTemp, nil) != nil {
		t.Error("instrumenting nil should stay nil")
	}
}

func TestOutcome(t *testing.T) {
	if outcome(nil) != "ok" {
		t.Error("nil should be ok")
	}
	if outcome(errors.ObjectNotFound("x")) != "not_found" {
		t.Error("not found should map to not_found")
	}
	if outcome(errors.PathSecurityViolation("x")) != "error" {
		t.Error("other errors should map to error")
	}
}
