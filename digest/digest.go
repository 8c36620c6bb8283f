// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// HexSize is the length of the hex-encoded form of a content digest
const HexSize = sha256.Size * 2

// ErrInvalidDigest is returned when parsing a string that is not a
// 64-character lowercase hex SHA-256 digest
var ErrInvalidDigest = errors.New("invalid content digest format")

// Digest is the content-addressing primitive: the SHA-256 fingerprint of a
// piece of certified content, carried as a lowercase hex string. The zero
// value is not a valid digest; construct via New or Parse
type Digest struct {
	value string
}

// New computes the digest of the given content bytes
func New(content []byte) Digest {
	sum := sha256.Sum256(content)
	return Digest{value: hex.EncodeToString(sum[:])}
}

// Parse validates an externally supplied digest string. Uppercase hex is
// accepted and normalized to lowercase
func Parse(s string) (Digest, error) {
	if len(s) != HexSize {
		return Digest{}, ErrInvalidDigest
	}
	s = strings.ToLower(s)
	if _, err := hex.DecodeString(s); err != nil {
		return Digest{}, ErrInvalidDigest
	}
	return Digest{value: s}, nil
}

// IsZero returns true for the zero (unset) digest
func (d Digest) IsZero() bool {
	return d.value == ""
}

// Equal compares by value
func (d Digest) Equal(other Digest) bool {
	return d.value == other.value
}

func (d Digest) String() string {
	return d.value
}

// Short returns a truncated form for logs and display
func (d Digest) Short() string {
	if len(d.value) < HexSize {
		return d.value
	}
	return d.value[:12] + "..." + d.value[HexSize-4:]
}

// Bytes returns the raw 32-byte digest
func (d Digest) Bytes() []byte {
	if d.value == "" {
		return nil
	}
	// Value is always valid hex by construction
	raw, _ := hex.DecodeString(d.value)
	return raw
}

func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.value), nil
}

func (d *Digest) UnmarshalText(text []byte) error {
	tmpDigest, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = tmpDigest
	return nil
}
