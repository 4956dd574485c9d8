package main

import "liftkeeper/cmd/client/cmd"

func main() {
	cmd.Execute()
}
