package main

import (
	"newsroom/cmd/handlers"
)

func main() {
	handlers.Execute()
}
