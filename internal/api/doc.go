// Package api exposes the external REST interface of the chat service: the
// conversation endpoint, the quote audit listing, and the metrics exposition.
package api
