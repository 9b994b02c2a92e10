/*
Package clients provides a Go client for the registry HTTP API.

RegistryClient signs every action with the caller's secp256k1 key using the
request authentication scheme of package auth, and decodes error responses
back into the registry errors of package interfaces:

	key, _ := cryptoutils.LoadPrivateKeyFile("vendor.key")
	client := clients.NewRegistryClient("http://localhost:8080", key)

	_, err := client.InitUser(ctx, api.InitUserRequest{
		Vendor:   "acme",
		Account:  account,
		Username: "alice",
		Timeout:  uint64(time.Now().Add(24 * time.Hour).Unix()),
	})
	if errors.Is(err, interfaces.ErrVendorMismatch) {
		// alice is pending under another vendor
	}

Queries need no key; a client created with a nil key can only read.
*/
package clients
