package main

import "github.com/afraznein/KTPDiscordRelay/internal/cli"

func main() {
	cli.Execute()
}
