package main

import "github.com/ammarena/strategyarena/cmd"

func main() {
	cmd.Execute()
}
