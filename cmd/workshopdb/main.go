package main

import "github.com/barnardcsc/workshopdb/cmd/workshopdb/commands"

func main() {
	commands.Execute()
}
