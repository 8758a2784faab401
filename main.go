package main

import (
	"github.com/Andiveli/HospitalFront-sub000/cmd"
	"github.com/Andiveli/HospitalFront-sub000/internal/logging"
)

func main() {
	// Initialize logging
	logging.Init()
	cmd.Execute()
}
