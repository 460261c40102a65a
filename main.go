package main

import "github.com/tanq16/trickle/cmd"

func main() {
	cmd.Execute()
}
