package main

import "github.com/sumShahd/sat2uav-rubble-detect/cmd"

func main() {
	cmd.Execute()
}
