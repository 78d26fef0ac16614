package main

import "github.com/embarktrucks/embag/cmd/embag/cmd"

func main() {
	cmd.Execute()
}
