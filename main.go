package main

import "github.com/KaramelBytes/basketloom-cli/cmd"

func main() {
	cmd.Execute()
}
