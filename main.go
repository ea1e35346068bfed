package main

import "github.com/frahmantamala/inspection-workflow/cmd"

func main() {
	cmd.Execute()
}
