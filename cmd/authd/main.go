package main

import "github.com/zlovtnik/iead-sub002/cmd/authd/cmd"

func main() {
	cmd.Execute()
}
