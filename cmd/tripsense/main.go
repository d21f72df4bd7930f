/*
Package main is the entry point for the tripsense CLI.

tripsense is a semantic destination search and recommendation engine.

Usage:

	tripsense [command]

Available Commands:

	search      Search destinations by meaning
	analyze     Extract sentiment and keywords from a review
	recommend   Recommend destinations for a user
	popular     List the most liked destinations
	nearby      List destinations near a coordinate
	tag         List destinations by tag, or all tags
	serve       Run the MCP server (stdio transport)
	benchmark   Measure cold vs cached search latency
	export      Convert a destination export to a JSON snapshot
	history     Inspect or prune recorded searches
	config      Create or inspect the configuration
	version     Show version information

Examples:

	# Search a snapshot
	tripsense search "quiet beach in spain" --data destinations.json

	# Run as MCP server
	tripsense serve --data destinations.json --activity users.json
*/
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/khanglvm/tripsense/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
