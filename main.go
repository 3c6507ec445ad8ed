package main

import "github.com/iksnae/smile-viewer/cmd"

func main() {
	cmd.Execute()
}
