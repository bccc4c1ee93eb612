package main

import "github.com/hazukari/sc3kit/cmd"

func main() {
	cmd.Execute()
}
