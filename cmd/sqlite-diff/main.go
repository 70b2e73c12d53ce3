// Package main provides the sqlite-diff CLI.
package main

import "github.com/arthurljones/sqlite-diff/internal/cli"

func main() {
	cli.Execute()
}
