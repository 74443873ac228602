// Package api defines the wire types exchanged with clients and the
// library service the HTTP handlers are built on.
package api
