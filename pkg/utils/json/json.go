// Package json wraps the JSON codec used for catalog payloads.
// It uses sonic on amd64/arm64 and falls back to encoding/json elsewhere.
package json

import (
	stdjson "encoding/json"
	"io"
	"runtime"

	"github.com/bytedance/sonic"
)

var (
	// Marshal encodes v into JSON bytes.
	Marshal func(v interface{}) ([]byte, error)

	// Unmarshal decodes JSON bytes into v.
	Unmarshal func(data []byte, v interface{}) error

	// NewEncoder creates a JSON encoder for w.
	NewEncoder func(w io.Writer) Encoder

	// NewDecoder creates a JSON decoder for r.
	NewDecoder func(r io.Reader) Decoder

	usingSonic bool
)

// Encoder is a JSON encoder.
type Encoder interface {
	Encode(v interface{}) error
}

// Decoder is a JSON decoder.
type Decoder interface {
	Decode(v interface{}) error
}

func init() {
	if runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64" {
		api := sonic.ConfigStd
		Marshal = api.Marshal
		Unmarshal = api.Unmarshal
		NewEncoder = func(w io.Writer) Encoder { return api.NewEncoder(w) }
		NewDecoder = func(r io.Reader) Decoder { return api.NewDecoder(r) }
		usingSonic = true
		return
	}

	Marshal = stdjson.Marshal
	Unmarshal = stdjson.Unmarshal
	NewEncoder = func(w io.Writer) Encoder { return stdjson.NewEncoder(w) }
	NewDecoder = func(r io.Reader) Decoder { return stdjson.NewDecoder(r) }
}

// Valid reports whether data is a syntactically valid JSON document.
func Valid(data []byte) bool {
	if usingSonic {
		return sonic.Valid(data)
	}
	return stdjson.Valid(data)
}

// IsUsingSonic reports whether sonic backs the codec.
func IsUsingSonic() bool {
	return usingSonic
}
