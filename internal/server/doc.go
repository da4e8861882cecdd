// Package server implements the MCP (Model Context Protocol) server for
// multi-channel microscopy images.
//
// This package provides a JSON-RPC 2.0 server that exposes imcol containers
// through the MCP protocol, so a client can declare images, inspect their
// channels, render composites and extract SURF-ref descriptors.
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
// Image Lifecycle:
//   - image_open: Declare an image (layout + channel files) under an identifier
//   - image_unload: Drop decoded data, keeping the image open
//   - image_close: Unload and forget an image
//
// Inspection:
//   - image_info: Channel sizes, plane counts and files
//
// Compositing:
//   - image_composite: RGB composite as a PNG file or base64 PNG
//
// Features:
//   - image_surfref: SURF descriptors with appended reference descriptors
//
// # Image Caching
//
// Open images keep their decoded channels cached between tool calls, so a
// composite followed by a descriptor request decodes each file once.
// image_unload releases that memory; all images are unloaded when the input
// stream ends.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	srv := server.New(cfg, logger)
//	if err := srv.Run(); err != nil {
//	    log.Fatal().Err(err).Msg("server error")
//	}
package server
