// Package main is the entry point for the workerlink CLI.
package main

import "workerlink.dev/pkg/workerlink/cmd"

func main() {
	cmd.Execute()
}
