// Package config reads the YAML configuration and builds the objects
// a program needs from it.
package config

import (
	"crypto/tls"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"httpwire/application/http/client"
	"httpwire/application/util/domain"
	"httpwire/transport"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Client client.Options `yaml:"client"`
	Dial   DialConfig     `yaml:"dial"`
	Log    LogConfig      `yaml:"log"`
}

type DialConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	// TLSMinVersion is "1.2" or "1.3".
	TLSMinVersion string `yaml:"tls_min_version"`
	// InsecureSkipVerify disables certificate verification. Tests only.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

type LogConfig struct {
	Level  slog.Level `yaml:"level"`
	Format string     `yaml:"format"` // "text" or "json".
}

func Default() *Config {
	return &Config{
		Client: client.DefaultOptions,
		Dial: DialConfig{
			Timeout:       10 * time.Second,
			TLSMinVersion: "1.2",
		},
		Log: LogConfig{
			Level:  slog.LevelInfo,
			Format: "text",
		},
	}
}

// Read parses r over the defaults. Unknown keys are rejected.
func Read(r io.Reader) (*Config, error) {
	c := Default()

	d := yaml.NewDecoder(r)
	d.KnownFields(true)
	if err := d.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "decoding config")
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads the file at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, errors.Wrap(err, "opening config")
	}
	defer f.Close()

	return Read(f)
}

func (c *Config) validate() error {
	if _, err := tlsVersion(c.Dial.TLSMinVersion); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

func tlsVersion(s string) (uint16, error) {
	switch s {
	case "", "1.2":
		return tls.VersionTLS12, nil
	case "1.3":
		return tls.VersionTLS13, nil
	}
	return 0, errors.Errorf("unsupported tls version %q", s)
}

// Logger builds the logger writing to w.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Log.Level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// TransportContext builds the context shared by every transport.
func (c *Config) TransportContext(logger *slog.Logger, clk clock.Clock) *transport.Context {
	minVersion, _ := tlsVersion(c.Dial.TLSMinVersion)

	tc := transport.NewContext()
	tc.TLSConfig = &tls.Config{
		MinVersion:         minVersion,
		InsecureSkipVerify: c.Dial.InsecureSkipVerify,
	}
	tc.DialTimeout = c.Dial.Timeout
	tc.Resolver = domain.NetLookuper{}
	if logger != nil {
		tc.Logger = logger
	}
	if clk != nil {
		tc.Clock = clk
	}
	return tc
}

// NewClient builds a client over TCP and TLS, logging to w.
func (c *Config) NewClient(w io.Writer) *client.Client {
	return client.NewWithContext(c.TransportContext(c.Logger(w), clock.New()), c.Client)
}
