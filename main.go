package main

import "github.com/jaredgiosinuff/k8-tools/cmd"

func main() {
	cmd.Execute()
}
