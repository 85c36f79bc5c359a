package main

import "github.com/lepinkainen/novelseek/cmd"

var execute = cmd.Execute

func main() {
	execute()
}
