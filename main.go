package main

import "github.com/joao-cainglet/fss-va-2025/cmd"

func main() {
	cmd.Execute()
}
