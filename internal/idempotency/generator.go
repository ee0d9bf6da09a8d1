package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Scope namespaces the keys of one kind of operation
type Scope string

// ScopeChargeRenewal keys a renewal charge by subscription and period start
const ScopeChargeRenewal Scope = "renewal"

// Generator generates idempotency keys
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// GenerateKey generates an idempotency key from a scope and parameters.
// The same scope and parameters always produce the same key.
func (g *Generator) GenerateKey(scope Scope, params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(string(scope))
	for _, k := range keys {
		v := params[k]
		if t, ok := v.(time.Time); ok {
			v = t.UTC().Format(time.RFC3339)
		}
		b.WriteString(fmt.Sprintf(":%s=%v", k, v))
	}

	hash := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%s-%s", scope, hex.EncodeToString(hash[:8]))
}

// ValidateKey validates if an idempotency key matches expected parameters
func (g *Generator) ValidateKey(scope Scope, params map[string]any, key string) bool {
	return g.GenerateKey(scope, params) == key
}

// RenewalReference is the gateway external reference of the charge that opens a period.
// It is unique per subscription and period start so retried cycles reuse it.
func (g *Generator) RenewalReference(subscriptionID string, periodStart time.Time) string {
	return g.GenerateKey(ScopeChargeRenewal, map[string]any{
		"subscription_id": subscriptionID,
		"period_start":    periodStart,
	})
}
