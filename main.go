package main

import "github.com/vibast-solutions/ms-go-topups/cmd"

func main() {
	cmd.Execute()
}
