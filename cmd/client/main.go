package main

import "todoctl/cmd/client/cmd"

func main() {
	cmd.Execute()
}
