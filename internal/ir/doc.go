// Package ir provides the canonical data types shared by every quest package.
//
// This package contains type definitions, reward blob schemas and digests
// only. All other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Node ids and outcome indexes are uint64; 0 is reserved as "no child"
//   - Token amounts are *big.Int and are never shared between records
//   - Addresses use go-ethereum's common.Address; the zero address means "unset"
//   - All JSON tags use snake_case
package ir
