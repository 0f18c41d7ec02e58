package main

import "github.com/KaramelBytes/auto-analyst/cmd"

func main() {
	cmd.Execute()
}
