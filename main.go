package main

import "dymeta/cmd"

func main() {
	cmd.Execute()
}
