package main

import "github.com/banterhq/banter/internal/server"

func main() {
	s := server.New()
	s.RegisterRoutes()
	s.Start()
}
