// Package cryptoutils provides the secp256k1 primitives used to authenticate
// callers of the registry.
//
// Every mutating request is signed by the caller's key. The signature covers a
// digest binding the HTTP method, path, timestamp, nonce and body:
//
//	keccak256(method \n path \n timestamp \n nonce \n keccak256(body))
//
// The server recovers the public key from the 65-byte signature and derives
// the caller identity (the Ethereum-style address of the key), so no key
// registry is needed to verify a request.
//
// # Key Functions
//
//   - GenerateKey, ParsePrivateKey, LoadPrivateKeyFile, EncodePrivateKey
//   - RequestDigest, Sign, RecoverSigner
package cryptoutils
