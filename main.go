package main

import "github.com/KaramelBytes/exval-cli/cmd"

func main() {
	cmd.Execute()
}
