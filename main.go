package main

import "github.com/bz888/cardadvisor/cmd"

func main() {
	cmd.Execute()
}
