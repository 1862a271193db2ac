package main

import "github.com/kozaktomas/doorlock/cmd"

func main() {
	cmd.Execute()
}
