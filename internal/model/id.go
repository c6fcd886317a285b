// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// =============================================================================
// ID TYPE
// =============================================================================

// IDKind discriminates the two identifier spaces.
type IDKind uint8

const (
	// KindNone is the zero value: no identifier.
	KindNone IDKind = iota
	// KindProvisional identifies a client-minted entry awaiting reconciliation.
	KindProvisional
	// KindCanonical identifies a server-issued record.
	KindCanonical
)

// ProvisionalPrefix prefixes every provisional identifier string.
const ProvisionalPrefix = "tmp-"

// ID identifies a conversation or message.
// A provisional ID never compares equal to a canonical ID.
type ID struct {
	kind        IDKind
	canonical   int64
	provisional string
}

// CanonicalID returns the ID for a server-issued record.
func CanonicalID(n int64) ID {
	return ID{kind: KindCanonical, canonical: n}
}

// NewProvisionalID mints a fresh, unique provisional ID.
func NewProvisionalID() ID {
	return ID{kind: KindProvisional, provisional: ProvisionalPrefix + uuid.NewString()}
}

// ParseID parses the string form produced by String.
func ParseID(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ID{}, nil
	}
	if strings.HasPrefix(s, ProvisionalPrefix) {
		return ID{kind: KindProvisional, provisional: s}, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return ID{}, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return CanonicalID(n), nil
}

// Kind returns the identifier space of the ID.
func (id ID) Kind() IDKind { return id.kind }

// IsZero reports whether the ID is absent.
func (id ID) IsZero() bool { return id.kind == KindNone }

// IsProvisional reports whether the ID was minted locally.
func (id ID) IsProvisional() bool { return id.kind == KindProvisional }

// IsCanonical reports whether the ID was issued by the server.
func (id ID) IsCanonical() bool { return id.kind == KindCanonical }

// Int64 returns the server-issued number. ok is false for non-canonical IDs.
func (id ID) Int64() (n int64, ok bool) {
	if id.kind != KindCanonical {
		return 0, false
	}
	return id.canonical, true
}

// String returns the textual form of the ID.
func (id ID) String() string {
	switch id.kind {
	case KindCanonical:
		return strconv.FormatInt(id.canonical, 10)
	case KindProvisional:
		return id.provisional
	default:
		return ""
	}
}

// MarshalJSON encodes canonical IDs as numbers and provisional IDs as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	switch id.kind {
	case KindCanonical:
		return []byte(strconv.FormatInt(id.canonical, 10)), nil
	case KindProvisional:
		return json.Marshal(id.provisional)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a number, a string or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ID{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParseID(s)
		if err != nil {
			return err
		}
		*id = parsed
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*id = CanonicalID(n)
	return nil
}
