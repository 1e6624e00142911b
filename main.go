package main

import "github.com/killallgit/pawnassist/cmd"

func main() {
	cmd.Execute()
}
