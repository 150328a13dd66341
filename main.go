package main

import "github.com/sow2grow/ms-go-bestowals/cmd"

func main() {
	cmd.Execute()
}
