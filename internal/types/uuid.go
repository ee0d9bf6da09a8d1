package types

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a prefix ex cob_01HZX4K6M2N8Q5R7S9T1V3W5Y7
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}

const (
	// Prefixes for all domains and entities

	UUID_PREFIX_ACCOUNT      = "acc"
	UUID_PREFIX_PARTICIPANT  = "part"
	UUID_PREFIX_STREAMING    = "strm"
	UUID_PREFIX_SUBSCRIPTION = "subs"
	UUID_PREFIX_CHARGE       = "cob"
	UUID_PREFIX_BATCH        = "lote"
	UUID_PREFIX_NOTIFICATION = "notif"
)
