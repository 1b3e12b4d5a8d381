package main

import "github.com/djb15/example-liquidity-layer/cmd"

func main() {
	cmd.Execute()
}
