package main

import "github.com/vharuk/notify-gateway/cmd"

func main() {
	cmd.Execute()
}
