package main

import (
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/driftline/driftline/cmd"
)

func main() {
	cmd.Execute()
}
