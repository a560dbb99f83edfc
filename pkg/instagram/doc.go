// Package instagram implements the profile retrieval strategies and
// the transport they share.
//
// Retrieval is a fixed fallback chain of four strategies: the mobile
// client API, the browser-flavored web API, the legacy ajax JSON
// endpoint, and finally scraping the HTML page itself. Each strategy
// produces a tagged Result; an Advance hands control to the next
// strategy while every other outcome ends the run. HTTP 404 and 429
// are terminal regardless of which strategy saw them.
//
// The Client binds one egress endpoint (a SOCKS5 proxy or a direct
// connection) for its lifetime, so callers that rotate proxies build a
// fresh client per attempt.
package instagram
