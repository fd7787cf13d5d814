// Package http models HTTP/1.x messages on the client side: building
// requests, rendering them to bytes and parsing a response held in memory.
//
// Reference:
//
// - https://datatracker.ietf.org/doc/html/rfc9110
//
// - https://datatracker.ietf.org/doc/html/rfc9112
package http
