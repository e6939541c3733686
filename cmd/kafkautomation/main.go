package main

import "github.com/samasrinivas/kafkautomation/internal/cli"

func main() {
	cli.Execute()
}
