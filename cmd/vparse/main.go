package main

import "github.com/vparse/vparse/internal/cli"

func main() {
	cli.Execute()
}
