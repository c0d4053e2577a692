package main

import "github.com/MeKo-Tech/orient/cmd/orient/cmd"

func main() {
	cmd.Execute()
}
