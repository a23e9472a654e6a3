package main

import (
	"github.com/MeKo-Tech/plansight/cmd/plansight/cmd"
)

func main() {
	cmd.Execute()
}
