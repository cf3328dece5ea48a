// Package adapter is the seam between conversational logic and the two protocols.
//
// Both ingresses produce an *activity.Activity, wrap it in a TurnContext and run it through
// the same Pipeline of middleware around one Handler. Replies go back through
// TurnContext.SendActivity, which routes to the Sender registered for the protocol the turn
// arrived on:
//
//   - TurnAdapter serves the request/response protocol over HTTP; replies are collected
//     and returned as the response body.
//   - PushAdapter receives reconciled activities from the registry and publishes replies
//     over the push connection, failing fast when it is not connected.
//
// Operations a protocol cannot perform, such as updating or deleting a delivered activity
// over the push protocol, return ErrNotSupported rather than silently succeeding.
package adapter
