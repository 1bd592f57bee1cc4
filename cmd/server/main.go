/*
main.go - Application entry point

PURPOSE:
  Runs the pharmacy loyalty engine CLI. The default deployment is
  `server serve`, which starts the HTTP API on a SQLite database.

COMMANDS:
  serve                  Start the HTTP API
  seed <catalog.yaml>    Load a campaign catalog (or --scenario demo data)
  export                 Print the campaign catalog as YAML
  normalize <id>...      Show how national IDs are stored
  status                 Print each campaign's lifecycle status today

CONFIGURATION:
  --config loyalty.yaml, or LOYALTY_* environment variables such as
  LOYALTY_HTTP_PORT=3000 and LOYALTY_DB_PATH=:memory:

SEE ALSO:
  - root.go: Global flags and shared wiring
  - config/config.go: Settings and defaults
*/
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
