package main

import "github.com/mobility-sim/mobility-sim/cmd"

func main() {
	cmd.Execute()
}
