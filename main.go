package main

import (
	"log"
)

var (
	GitCommit string
	GitTag    string
	BuildTime string
)

//	@title			Books Store API
//	@version		1.0
//	@description	Minimal api to list, create, update and delete books.
//	@BasePath		/
func main() {
	if err := NewRootCommand().Execute(); err != nil {
		log.Fatal("application exited. check logs for more details. ", err)
	}
}
