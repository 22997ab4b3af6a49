package main

import "tree-backend/internal/app"

func main() {
	app.Run()
}
