package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

// Domain prefixes for digests. The version suffix allows future migration.
const (
	DomainFormula  = "dquest/formula/v1"
	DomainOutcomes = "dquest/outcomes/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// FormulaDigest identifies a submitted node list. Node order matters: the
// digest describes what the administrator submitted, not the derived tree.
func FormulaDigest(nodes []MissionNode) (string, error) {
	list := make([]any, len(nodes))
	for i, n := range nodes {
		list[i] = map[string]any{
			"id":         n.ID,
			"is_mission": n.IsMission,
			"operator":   n.Operator.String(),
			"left":       n.Left,
			"right":      n.Right,
			"handler":    n.Handler.Hex(),
			"oracle":     n.Oracle.Hex(),
			"data":       hex.EncodeToString(n.Data),
		}
	}
	canonical, err := MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("FormulaDigest: %w", err)
	}
	return hashWithDomain(DomainFormula, canonical), nil
}

// OutcomeDigest identifies a submitted outcome list.
func OutcomeDigest(outcomes []Outcome) (string, error) {
	list := make([]any, len(outcomes))
	for i, o := range outcomes {
		list[i] = map[string]any{
			"index":         o.Index,
			"is_native":     o.IsNative,
			"native_amount": decimal(o.NativeAmount),
			"token":         o.Token.Hex(),
			"selector":      o.Selector.String(),
			"data":          hex.EncodeToString(o.Data),
			"is_limited":    o.IsLimited,
			"total_reward":  decimal(o.TotalReward),
		}
	}
	canonical, err := MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("OutcomeDigest: %w", err)
	}
	return hashWithDomain(DomainOutcomes, canonical), nil
}

// amounts are strings so values beyond 2^63 survive canonicalization
func decimal(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
