// Package cookies acquires session cookie headers for the reporting
// site. The site fronts its report pages with a reCAPTCHA challenge, so
// a fresh session has to come from outside the process: either a real
// browser window the user solves the challenge in, or a cookie string
// pasted at a prompt.
//
// The rest of the program treats the returned value as an opaque blob
// and never parses it.
package cookies
