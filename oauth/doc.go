// Package oauth exchanges authorization codes with external identity
// providers (Google, GitHub) and normalizes the returned profile into a
// provider-neutral [Identity]. The package owns only the code exchange
// and profile fetch; session issuance belongs to the lifecycle
// controller.
package oauth
