// Package app wires the converter server together: configuration, logging,
// OpenTelemetry, the recognition engines, the session service, the
// websocket hub and the HTTP router.
//
// # Initialization Flow
//
//  1. Load configuration from environment and files
//  2. Initialize logging and observability
//  3. Build the recognition registry (text and pdf always, ocr with the
//     ocr build tag, vision when an API key is configured)
//  4. Create the session service, the websocket hub and the optional
//     Google Sheets writer
//  5. Set up HTTP handlers and middleware
//
// # Usage
//
//	app, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := app.Run(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// Run returns after SIGINT, SIGTERM or cancellation of its context. In-flight
// requests are drained, websocket clients receive a close frame and
// telemetry is flushed. Idle sessions are swept on a ticker while the
// server runs.
//
// The package never calls os.Exit; the main function controls the exit
// code.
package app
