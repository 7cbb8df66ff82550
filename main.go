package main

import "github.com/Manu343726/npldbgworker/cmd"

func main() {
	cmd.Execute()
}
