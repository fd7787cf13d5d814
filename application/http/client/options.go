package client

import (
	"time"

	"httpwire/application/http"
	"httpwire/application/util/uri"
	"httpwire/transport"
)

type Options struct {
	URI       uri.ParseOptions        `yaml:"uri"`
	Send      SendOptions             `yaml:"send"`
	Receive   ReceiveOptions          `yaml:"receive"`
	Timeout   TimeoutOptions          `yaml:"timeout"`
	Transport transport.StreamOptions `yaml:"transport"`
}

type SendOptions struct {
	Encode http.EncodeOptions `yaml:"encode"`

	// CloseConnection adds "Connection: close" unless the request sets
	// Connection itself, so the peer ends the response by closing.
	CloseConnection bool `yaml:"close_connection"`
}

type ReceiveOptions struct {
	Decode http.DecodeOptions `yaml:"decode"`
}

type TimeoutOptions struct {
	// Request bounds a whole round trip. Zero means no limit.
	Request time.Duration `yaml:"request"`
}

var DefaultOptions = Options{
	URI: uri.DefaultParseOptions,
	Send: SendOptions{
		Encode:          http.DefaultEncodeOptions,
		CloseConnection: true,
	},
	Receive: ReceiveOptions{
		Decode: http.DefaultDecodeOptions,
	},
	Timeout: TimeoutOptions{
		Request: 30 * time.Second,
	},
	Transport: transport.DefaultStreamOptions,
}
