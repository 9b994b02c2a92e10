/*
Package api defines the wire surface of the ork custody registry: route
paths, request and response bodies, and the mapping of registry errors to
HTTP statuses.

The subpackages implement it:

 1. auth - signed request verification and nonce replay protection
 2. handlers - request decoding and dispatch to the registry core
 3. servers - HTTP server lifecycle, health and drain endpoints
 4. clients - Go client that signs actions and decodes errors

# Actions

Every state change is a signed POST under /api/v1/actions. The caller
identity is recovered from the X-Ork-Signature header and is the only
identity the registry core authorizes against:

  - POST /api/v1/actions/seedroot - owner creates the root account
  - POST /api/v1/actions/addork - custodian claims or updates its directory row
  - POST /api/v1/actions/inituser - vendor begins or refreshes a registration
  - POST /api/v1/actions/confirmuser - vendor finalizes a registration
  - POST /api/v1/actions/postfragment - custodian stores a key fragment

A successful action returns its ActionRecord.

# Queries

  - GET /api/v1/users/{username}
  - GET /api/v1/users/{username}/orks?vendor=
  - GET /api/v1/orks and /api/v1/orks/{username}
  - GET /api/v1/containers/{scope}/{username}
  - GET /api/v1/actions?from=&limit=
  - GET /api/v1/head

# Errors

Failures carry an ErrorResponse with a stable code:

	401 unauthorized       403 forbidden
	404 not_found          404 unknown_user
	409 vendor_mismatch    409 already_confirmed
	400 invalid_timeout    400 invalid_argument
	503 unavailable        500 internal
*/
package api
