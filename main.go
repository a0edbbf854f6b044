package main

import "github.com/brogergvhs/mangapdf/cmd"

func main() {
	cmd.Execute()
}
