// Package ir holds the value types shared by every other mudsync package.
//
// It defines the mirrored hierarchy (World, Namespace, Table, Record), the
// keccak256 identity functions, and the constrained value model used for
// decoded record fields. ir imports nothing internal; all other packages
// import ir.
//
// Key design constraints:
//   - NO float types anywhere - integers are int64 or decimal strings
//   - Identity keys are derived from content, never assigned by callers
//   - Parent links are explicit row IDs, never pointers
//   - All JSON tags use snake_case
package ir
