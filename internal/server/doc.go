// Package server implements the MCP (Model Context Protocol) server for the
// photo filter tools.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Filter Catalog:
//   - filter_list: Filters in picker order and the current selection
//   - filter_thumbnails: Sample image rendered through each filter
//
// Editing:
//   - photo_import: Load a photo as the working image
//   - filter_select: Apply a filter to the working image
//   - filter_clear: Return to the unfiltered working image
//   - photo_preview: Current preview as PNG
//   - photo_sample_color: Color at a preview pixel
//
// Library:
//   - photo_save: Save the current preview
//   - library_list: Saved photos, newest first
//
// # Edit Session
//
// A server owns exactly one edit session. Tool calls that change it wait for
// the session worker to apply the change, so each response reflects the
// state after that call.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32602 for malformed arguments, -32000 for any other failure
//   - message: Human-readable error description
//   - data: The Go error string
package server
