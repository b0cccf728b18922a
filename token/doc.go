// Package token issues and parses the signed identity tokens carried by
// provider identities.
package token
