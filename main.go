package main

import "github.com/example/dailylove/internal/cli"

func main() {
	cli.Execute()
}
