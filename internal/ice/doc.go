// Package ice talks to the ICE market-report API.
//
// A report exposes two endpoints: criteria, listing the selectable
// markets and time periods, and results, returning one page of rows for
// a (market, time period) pair. Every request goes through a Gateway
// that recovers from session expiry (HTTP 409, refresh cookies and
// retry) and rate limiting (HTTP 429, honor Retry-After and retry), and
// treats any other failure status as fatal.
//
// Row objects arrive as JSON with server-defined field order. Column
// selection downstream is positional, so rows are decoded token by
// token into cell slices instead of maps, which would scramble the
// order.
package ice
