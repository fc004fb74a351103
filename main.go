package main

import "github.com/wormhole-demo/core/cmd"

func main() {
	cmd.Execute()
}
