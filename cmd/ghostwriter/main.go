package main

import (
	"ghostwriter/cmd/handlers"
	"ghostwriter/internal/logger"
)

func main() {
	logger.Init() // Initialize the logger
	handlers.Execute()
}
