package main

import "github.com/confaudit/confaudit/internal/cli"

func main() {
	cli.Execute()
}
