// Command insightdash is the terminal client for the InsightDash analytics API.
package main

import (
	"context"
	"os"

	"github.com/roach88/insightdash/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
