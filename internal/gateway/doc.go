// Package gateway talks to the AI completion backends used by the answer
// eraser.
//
// A Gateway is built for one Backend. The backend's Provider selects one of
// four wire formats:
//
//   - claude: Anthropic messages API, x-api-key authentication
//   - openai: chat completions, bearer token
//   - gemini: generateContent, x-goog-api-key header
//   - poe: OpenAI-compatible chat completions with streaming disabled
//
// Every format is reduced to the same assistant message: either a string or a
// list of typed parts (text, image). Callers only see the Completer interface
// and CleanWorksheet, so swapping providers never changes their contract.
//
// # Images
//
// Images are downscaled so the longer side fits the transmission limit (1568
// px for completions, 1024 px for cleaning), JPEG encoded and sent base64
// inline. Images are never upscaled.
//
// # Full-Image Cleaning
//
// CleanWorksheet sends the whole page with CleanPrompt and expects an image
// back. It is the only call that retries: 429 and 503 responses are retried
// with exponential backoff and jitter, preferring the server's Retry-After
// header. The answer is searched for an image in this order:
//
//  1. string content: extraction on the string
//  2. part list: the first image part, else extraction on each text part
//
// Extraction tries a markdown image link, then a bare http(s) URL, then an
// inline base64 data URI. Remote images are downloaded with the request
// timeout.
//
// # Error Handling
//
// Errors are *failure.Error values:
//   - KindTransport: the request could not be sent or read
//   - KindInvalidResponse: a 2xx body without a usable answer
//   - KindHTTP: any non-2xx status (Status is set)
//   - KindInpainting: the cleaning answer held no decodable image
//
// Cancelling the context abandons the request and returns ctx.Err().
//
// # Logging
//
// Requests are logged through logrus with provider, model, status and
// latency. API keys are never logged.
package gateway
