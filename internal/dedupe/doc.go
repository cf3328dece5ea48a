// Package dedupe remembers recently delivered message keys so that a redelivered
// push notification is not handed to conversational logic twice.
package dedupe
