package main

import "github.com/brpay/pix-gateway/cmd"

func main() {
	cmd.Execute()
}
