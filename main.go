package main

import "github.com/ulordchain/ucwallet/cmd"

func main() {
	cmd.Execute()
}
