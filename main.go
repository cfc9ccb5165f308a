package main

import "github.com/Mohsinsiddi/beancli/cmd"

func main() {
	cmd.Execute()
}
