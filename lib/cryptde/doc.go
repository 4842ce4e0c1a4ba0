// Package cryptde provides the asymmetric encode/decode capability used to build and
// peel routing layers.
//
// # Overview
//
// Every layer of a routed package is encrypted to exactly one hop's public key.
// The routing layer never touches key material directly; it is handed a CryptDE
// and calls Encode with a target key or Decode with its own key.
//
// Two implementations are provided:
//   - X25519CryptDE: ephemeral X25519 + HKDF-SHA256 + ChaCha20-Poly1305
//   - NullCryptDE: deterministic test double that still detects key mismatch
//     and corruption
//
// # Errors
//
// Encode failures wrap ErrEncryption, Decode failures wrap ErrDecryption. Callers
// classify them with errors.Is.
package cryptde
