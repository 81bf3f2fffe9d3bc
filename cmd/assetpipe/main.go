package main

import "github.com/santiagomed/assetpipe/cli"

func main() {
	cli.Execute()
}
