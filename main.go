package main

import "github.com/iksnae/completeness-tracker/cmd"

func main() {
	cmd.Execute()
}
