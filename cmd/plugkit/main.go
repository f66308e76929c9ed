// Package main provides the plugkit CLI.
//
// Usage:
//
//	plugkit [flags] <command> [args]
//
// Commands:
//
//	serve   - Run the webhook receiver, trigger dispatcher, and delivery feed
//	tools   - List and invoke builtin tools
//	plugins - Inspect plugin manifests
//	parse   - Run the ReAct output parser over stdin
package main

import (
	"fmt"
	"os"

	"github.com/plugkit/plugkit/cmd/plugkit/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
