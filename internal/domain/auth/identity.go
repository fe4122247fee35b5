// Package auth contains caller identity types shared across the gateway.
package auth

// TenantPrefix namespaces tenant identifiers derived from verified subjects.
const TenantPrefix = "tenant-"

// AnonymousTenant is the tenant assigned when no identity is available
// (dev mode with auth disabled).
const AnonymousTenant = TenantPrefix + "anonymous"

// Identity is the verified identity of an API caller.
// It is derived from a bearer token, never from request payloads.
type Identity struct {
	// Subject is the stable identifier from the identity provider.
	Subject string
	// Email is informational only.
	Email string
}

// Tenant derives the caller's tenant identifier. A request dispatched to the
// worker pool carries this value so results stay scoped to the originating
// caller.
func (i Identity) Tenant() string {
	if i.Subject == "" {
		return AnonymousTenant
	}
	return TenantPrefix + i.Subject
}
