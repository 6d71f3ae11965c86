package main

import (
	"github.com/eupsci/eupsbuild/cmd"
)

func main() {
	cmd.Execute()
}
