package types

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
)

// Bytes is a byte quantity that marshals as a human readable string
// ("512 KiB") and accepts either strings or raw numbers when decoding.
type Bytes uint64

func (b Bytes) String() string {
	return humanize.IBytes(uint64(b))
}

func (b Bytes) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *Bytes) UnmarshalText(data []byte) error {
	return b.Set(string(data))
}

func (b Bytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

func (b *Bytes) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*b = Bytes(uint64(num))
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return b.Set(raw)
}

func (b *Bytes) UnmarshalYAML(unmarshal func(any) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	return b.Set(raw)
}

func (b Bytes) MarshalYAML() (any, error) {
	return b.String(), nil
}

func (b *Bytes) Set(value string) error {
	parsed, err := humanize.ParseBytes(value)
	if err != nil {
		return fmt.Errorf("invalid byte quantity %q: %w", value, err)
	}
	*b = Bytes(parsed)
	return nil
}

func (b Bytes) Uint64() uint64 {
	return uint64(b)
}

func (b Bytes) Int64() int64 {
	return int64(b)
}

func (b Bytes) Int() int {
	return int(b)
}
