package main

import "github.com/qobs-build/cubemeson/cmd"

func main() {
	cmd.Execute()
}
