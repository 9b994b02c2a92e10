// Package registry implements the authorization and registration core of
// the ork custody protocol on top of the ledger executor.
//
// Three tables hold all state:
//
//   - users: account registry rows, global scope
//   - orks: custodian directory rows, global scope
//   - containers: fragment containers, in the scope of the custodian account that wrote them
//
// Operations:
//
//   - SeedRoot: owner-only, idempotent creation of the root account
//   - RegisterOrUpdateCustodian: a custodian claims or rotates the ork row for a username
//   - BeginRegistration: a vendor creates a pending account or extends its timeout
//   - ConfirmRegistration: the registering vendor finalizes a pending account
//   - PostFragment: a custodian stores a vendor's key fragment for a user in its own scope
//
// Every operation receives the authenticated caller explicitly as an
// interfaces.Call. Authorization is pure identity comparison: authorize
// checks the caller against a claimed identity and
// resolveAndAuthorizeVendor checks it against the account of a stored
// user. Each operation executes as one ledger action; any error leaves
// the state untouched.
package registry
