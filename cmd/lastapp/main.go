package main

import "github.com/actionsum/lastapp/cmd/lastapp/cmd"

func main() {
	cmd.Execute()
}
