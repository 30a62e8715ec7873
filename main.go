/*
	Copyright 2023 Markus Papenbrock
*/

package main

import "github.com/mpapenbr/iracehud-go/cmd"

func main() {
	cmd.Execute()
}
