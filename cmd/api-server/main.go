package main

import "reviewhub/cmd/api-server/command"

func main() {
	command.Execute()
}
