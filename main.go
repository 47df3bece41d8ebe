package main

import "github.com/tutorly/tutorly_backend/cmd"

func main() {
	cmd.Execute()
}
