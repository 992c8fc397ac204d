// Command chatpulse counts keyword mentions per time window in chat
// transcripts. It:
//   - Analyzes a transcript file (or a stored session) and draws a terminal
//     chart or writes a CSV table.
//   - Captures live YouTube or Twitch chat into a transcript, into Postgres,
//     or straight into an analysis.
//   - Serves stored sessions and their keyword tables over HTTP with
//     /healthz, /readyz and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"os"

	"github.com/onnwee/chatpulse/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(cli.Execute(version))
}
