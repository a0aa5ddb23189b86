package main

import "github.com/alcosi/alcosi-blockchain-api-gateway/cmd"

func main() {
	cmd.Execute()
}
