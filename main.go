package main

import "github.com/wangqi/ghostty/cmd"

func main() {
	cmd.Execute()
}
