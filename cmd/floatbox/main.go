package main

import "github.com/cloudbun/floatbox/cmd/floatbox/commands"

func main() {
	commands.Execute()
}
