package main

import (
	"appscout/cmd/handlers"
	"appscout/internal/logger"
)

func main() {
	logger.Init()
	handlers.Execute()
}
