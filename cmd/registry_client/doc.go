// Package main (cmd/registry_client) is a command-line client for the ork
// custody registry.
//
// Actions are signed with a secp256k1 key given by --key or --key-file:
//
//	registry-client keygen > vendor.json
//	registry-client --key-file=owner.key seed-root
//	registry-client --key-file=vendor.key init-user --vendor=acme \
//	    --account=0x... --username=alice --timeout=1735689600
//	registry-client --key-file=ork.key post-fragment --ork=ork1 \
//	    --username=alice --vendor=acme --frag=... --frag-public-key=... --pass-hash=...
//
// Queries are unsigned:
//
//	registry-client get-user alice
//	registry-client user-orks --vendor=acme alice
//	registry-client actions --from=1 --limit=50
//
// Results are printed as indented JSON.
package main
