package main

import "github.com/classhub/trustgate/cmd"

func main() {
	cmd.Execute()
}
