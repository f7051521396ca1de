package main

import "github.com/Memphis465/nova/internal/commands"

func main() {
	commands.Execute()
}
