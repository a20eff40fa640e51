package main

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	execute()
}
