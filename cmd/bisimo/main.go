package main

import "github.com/paranroman/bisimo/internal/cli"

func main() {
	cli.Main()
}
