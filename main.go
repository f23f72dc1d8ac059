package main

import "property-pipeline/cmd"

func main() {
	cmd.Execute()
}
