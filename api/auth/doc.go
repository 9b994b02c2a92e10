// Package auth authenticates registry requests signed with secp256k1 keys.
//
// A client signs each mutating request with SignRequest, which sets the
// X-Ork-Signer, X-Ork-Timestamp, X-Ork-Nonce and X-Ork-Signature headers.
// Authenticator.Middleware recovers the signer from the signature, checks it
// against the claimed identity, bounds the timestamp skew and rejects reused
// nonces through a ReplayGuard. The resulting identity is available to
// handlers through IdentityFromContext.
package auth
