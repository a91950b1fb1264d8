package main

import (
	"boardsync.app/mirror/tools/linters/enumlit"
	"golang.org/x/tools/go/analysis/singlechecker"
)

func main() {
	singlechecker.Main(enumlit.Analyzer)
}
