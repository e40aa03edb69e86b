package main

import "alnstream/internal/cli"

func main() {
	cli.Execute()
}
