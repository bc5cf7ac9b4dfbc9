package main

import "github.com/nextlevelbuilder/formrelay/cmd"

func main() {
	cmd.Execute()
}
