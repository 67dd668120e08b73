package main

import (
	"github.com/joho/godotenv"

	"agencyerp/internal/app/server"
)

func main() {
	_ = godotenv.Load()
	server.Run()
}
