package main

import "submission-composer/cmd"

func main() {
	cmd.Execute()
}
