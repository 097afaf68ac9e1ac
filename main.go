package main

import "github.com/nasmond/nasmond/cmd"

func main() {
	cmd.Execute()
}
