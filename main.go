package main

import "github.com/knsuzuki/shopmail/cmd"

func main() {
	cmd.Execute()
}
