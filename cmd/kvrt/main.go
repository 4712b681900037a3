package main

import "github.com/KimSoungRyoul/aerospike-py-sub001/cmd"

func main() {
	cmd.Execute()
}
