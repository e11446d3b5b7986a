package main

import "github.com/alpaka-gaming/source-compiler/internal/cli"

func main() {
	cli.Execute()
}
