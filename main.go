package main

import "github.com/harnesslab/gimpbridge/cmd"

func main() {
	cmd.Execute()
}
