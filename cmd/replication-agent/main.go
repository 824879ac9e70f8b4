package main

import "replication-agent/internal/cli"

func main() {
	cli.Execute()
}
