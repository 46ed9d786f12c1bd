// Package providers implements the shared OAuth2 protocol engine and the
// per-platform adapter constructors that configure it.
package providers
