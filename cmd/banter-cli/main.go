package main

import "github.com/banterhq/banter/cmd/banter-cli/cmd"

func main() {
	cmd.Execute()
}
