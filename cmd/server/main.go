// Package main implements the entry point for the taskhub server, a
// collaborative task tracking backend with realtime presence and event
// fanout over websockets.
package main

import (
	"context"
	"log"
)

func main() {
	app, err := newApplication()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	router := app.setupRouter()

	if err := app.startHTTPServer(context.Background(), router); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
}
