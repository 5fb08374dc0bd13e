package main

import "github.com/openbotauth/openbotauth-go/internal/cli"

func main() {
	cli.Execute()
}
