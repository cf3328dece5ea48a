// Package translate converts between the generic Activity used by conversational logic
// and the push protocol's message events.
//
// All functions are pure: no I/O, no shared state, safe for concurrent use. That keeps
// the translator table-testable and lets both adapters call it from any goroutine.
//
// # Outbound
//
// ToPushEvent picks one event per activity:
//
//   - Text set: a text/plain ContentEvent, with quick replies from suggested actions
//   - Attachments set: a RichContentEvent holding a card, or a carousel when the
//     attachment layout is "carousel" (one card per attachment, padding 10)
//
// Outside of carousel layout only the first attachment is rendered.
//
// Adaptive cards are walked recursively: Container flattens in place, ColumnSet becomes a
// horizontal container of vertical columns, FactSet becomes label/value rows, ImageSet a
// horizontal row of images, and card actions a trailing horizontal row of buttons.
// TextBlock text runs through token substitution ({{DATE(...)}}, {{TIME(...)}}) first.
//
// # Inbound
//
// ToActivity turns a reconciled consumer message into a message Activity on the
// "liveperson" channel, carrying the resolved customer id as channel data.
package translate
