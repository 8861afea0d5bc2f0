package main

import "esbilla/internal/cli"

func main() {
	cli.Execute()
}
