package main

import "github.com/dbsmedya/nlquery/cmd/nlquery/cmd"

func main() {
	cmd.Execute()
}
