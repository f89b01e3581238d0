package main

import "github.com/logship/logship/internal/cli"

func main() {
	cli.Execute()
}
