package main

import "github.com/ngocminh-dev/wareply/cmd"

func main() {
	cmd.Execute()
}
