// Package uri decomposes absolute URIs into the parts an HTTP client needs:
// scheme, authority (user-info, host, port), path segments, query and fragment.
//
// Only http and https URIs are decomposed. Other recognized schemes (ldap,
// mailto, news, tel, telnet, urn) and unrecognized ones keep their raw
// remainder untouched.
//
// Reference:
//
// - https://datatracker.ietf.org/doc/html/rfc3986
package uri
