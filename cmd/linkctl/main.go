package main

import "go.pilab.hu/gamelink/cmd/linkctl/cmd"

func main() {
	cmd.Execute()
}
