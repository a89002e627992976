package main

import "element-locator/internal/bootstrap"

func main() {
	bootstrap.NewApp().Run()
}
