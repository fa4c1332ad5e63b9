package main

import "github.com/llehouerou/cadence/cmd"

func main() {
	cmd.Execute()
}
