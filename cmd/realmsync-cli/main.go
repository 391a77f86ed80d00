package main

import "github.com/nvail/realmsync/cmd/realmsync-cli/cmd"

func main() {
	cmd.Execute()
}
