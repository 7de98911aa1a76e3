// Package server implements the MCP (Model Context Protocol) server for the
// answer eraser.
//
// The server speaks JSON-RPC 2.0 over stdio so an MCP client can clean
// worksheets without shelling out to the CLI.
//
// # Protocol
//
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
//   - worksheet_load: Load a worksheet and report its metadata
//   - worksheet_erase_answers: Erase handwritten answers, save or return the result
//   - worksheet_detect_handwriting: List the regions that would be erased
//   - worksheet_preview_regions: Render detected regions over the worksheet
//   - worksheet_text_blocks: List the printed and handwritten text lines
//
// Region and text block coordinates refer to the worksheet after it has been
// scaled to the processing size; every tool that returns boxes also returns
// that width and height.
//
// # Image Caching
//
// Worksheets are decoded once (orientation corrected) and cached by path for
// the lifetime of the process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with code
// -32000 and the Go error string as data. Pipeline failures keep their
// failure kind in the message, for example "inpainting: ...".
//
// # Usage
//
//	srv := server.New(
//	    server.WithEraser(e),
//	    server.WithTextDetector(text),
//	    server.WithLogger(log),
//	)
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
