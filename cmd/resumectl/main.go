package main

import "github.com/dgallion1/resumedraft/internal/cli"

func main() {
	cli.Execute()
}
