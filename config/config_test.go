package config

import (
	"bytes"
	"crypto/tls"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"httpwire/application/http"
	"httpwire/application/util/domain"
	"httpwire/application/util/uri"

	"github.com/benbjohnson/clock"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const sample = `
client:
  uri:
    fragment: first
  send:
    encode:
      use_sole_lf: true
      target_form: absolute
    close_connection: false
  receive:
    decode:
      folding: space
      strict_field_lines: true
      max_status_line_length: 1024
  timeout:
    request: 5s
  transport:
    read_buffer_size: 512
dial:
  timeout: 2s
  tls_min_version: "1.3"
log:
  level: debug
  format: json
`

func TestRead(t *testing.T) {
	c, err := Read(strings.NewReader(sample))
	require.NoError(t, err)

	expected := Default()
	expected.Client.URI.Fragment = uri.FragmentFirstHash
	expected.Client.Send.Encode = http.EncodeOptions{UseSoleLF: true, TargetForm: http.TargetAbsolute}
	expected.Client.Send.CloseConnection = false
	expected.Client.Receive.Decode.Folding = http.FoldSpace
	expected.Client.Receive.Decode.StrictFieldLines = true
	expected.Client.Receive.Decode.MaxStatusLineLength = 1024
	expected.Client.Timeout.Request = 5 * time.Second
	expected.Client.Transport.ReadBufferSize = 512
	expected.Dial.Timeout = 2 * time.Second
	expected.Dial.TLSMinVersion = "1.3"
	expected.Log = LogConfig{Level: slog.LevelDebug, Format: "json"}

	if diff := cmp.Diff(expected, c); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestReadEmpty(t *testing.T) {
	c, err := Read(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestReadInvalid(t *testing.T) {
	testcases := []struct {
		desc  string
		input string
	}{
		{desc: "unknown key", input: "client:\n  retries: 3\n"},
		{desc: "unknown fold policy", input: "client:\n  receive:\n    decode:\n      folding: tab\n"},
		{desc: "unknown fragment policy", input: "client:\n  uri:\n    fragment: middle\n"},
		{desc: "unknown target form", input: "client:\n  send:\n    encode:\n      target_form: relative\n"},
		{desc: "bad duration", input: "dial:\n  timeout: soon\n"},
		{desc: "tls version", input: "dial:\n  tls_min_version: \"1.0\"\n"},
		{desc: "log format", input: "log:\n  format: xml\n"},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			c, err := Read(strings.NewReader(tc.input))
			assert.Error(t, err)
			assert.Nil(t, c)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	c, err := Load(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	c, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, c.Log.Level)
	assert.Equal(t, uri.FragmentFirstHash, c.Client.URI.Fragment)
}

func TestMarshalRoundTrip(t *testing.T) {
	c, err := Read(strings.NewReader(sample))
	require.NoError(t, err)

	b, err := yaml.Marshal(c)
	require.NoError(t, err)

	again, err := Read(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(c, again))
}

func TestTransportContext(t *testing.T) {
	c := Default()
	c.Dial.TLSMinVersion = "1.3"
	c.Dial.InsecureSkipVerify = true

	mock := clock.NewMock()
	logger := slog.New(slog.DiscardHandler)

	tc := c.TransportContext(logger, mock)
	assert.Equal(t, uint16(tls.VersionTLS13), tc.TLSConfig.MinVersion)
	assert.True(t, tc.TLSConfig.InsecureSkipVerify)
	assert.Equal(t, c.Dial.Timeout, tc.DialTimeout)
	assert.Same(t, logger, tc.Logger)
	assert.IsType(t, domain.NetLookuper{}, tc.Resolver)
	assert.Equal(t, clock.Clock(mock), tc.Clock)
}

func TestLogger(t *testing.T) {
	c := Default()
	c.Log = LogConfig{Level: slog.LevelWarn, Format: "json"}

	var buf bytes.Buffer
	logger := c.Logger(&buf)
	logger.Info("dropped")
	logger.Warn("kept", "key", "value")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), `"msg":"kept"`)
	assert.Contains(t, buf.String(), `"key":"value"`)
}

func TestNewClient(t *testing.T) {
	assert.NotNil(t, Default().NewClient(&bytes.Buffer{}))
}
