package main

import "github.com/funvibe/tynorm/pkg/cli"

func main() {
	cli.Run()
}
