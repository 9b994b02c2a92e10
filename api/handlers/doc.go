/*
Package handlers implements the HTTP surface of the ork registry.

Mutating routes under /api/v1/actions are signed: the auth middleware
recovers the caller identity from the request signature and the handler
forwards it to the registry core as the authenticated caller. Read-only
routes (users, orks, containers, action log) need no authentication.

Registry errors are mapped to HTTP statuses by api.ErrorStatus and returned
as a JSON api.ErrorResponse carrying the error message and a stable code.
*/
package handlers
