package main

import "github.com/pattty847/TranscriptAI/cmd"

func main() {
	cmd.Execute()
}
