package main

import "github.com/meysamhadeli/codecompanion/cmd"

func main() {
	cmd.Execute()
}
