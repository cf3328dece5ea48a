// Package richcontent models the tree-structured rich message format understood by the
// push-protocol rendering client.
//
// # Elements
//
// Every node is a concrete struct implementing the sealed Element interface:
//
//   - Text: styled text with a tooltip
//   - Image: an image URL with a tooltip
//   - Button: a titled button carrying one or more ButtonActions and optional metadata
//   - Container: a vertical or horizontal group of child elements
//
// ButtonAction is likewise sealed over Link (open a URI) and PostBack (publish text back
// into the conversation).
//
// # Roots
//
// A RichContent value is always the single root of a tree. Cards use the "vertical"
// wire type; carousels use "carousel" with a fixed padding of 10 and one card per element.
// QuickReplies attach to the root and always render four items per row.
//
// # Wire Format
//
// MarshalJSON on each type writes the exact field names the rendering client expects:
//
//	{"type":"vertical","elements":[{"type":"text","text":"Hi","tooltip":"Hi"}]}
//
// Child order is reading order and is preserved verbatim.
package richcontent
