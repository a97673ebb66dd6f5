package main

import "github.com/itohio/gospectral/cmd/spectrald/commands"

func main() {
	commands.Execute()
}
