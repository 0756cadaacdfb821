// Package http provides the web surface for picshed: session-backed
// authentication against a token verifier, the gallery pages, and the
// upload/list/delete routes, all wired onto a chi router.
package http
