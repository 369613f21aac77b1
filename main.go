package main

import "tandem-backend/cmd"

func main() {
	cmd.Run()
}
