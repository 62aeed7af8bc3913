// Package agent contains the conversational orchestrator. It classifies the
// intent of each user message, extracts price query parameters when the user
// asks for a crypto price, resolves the price through the configured market
// sources, and generates the final reply grounded in the bounded session
// history.
package agent
