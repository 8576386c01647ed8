package main

import "mrbox/cmd"

func main() {
	cmd.Execute()
}
