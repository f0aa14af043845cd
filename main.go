package main

import "github.com/k-siddhartha-ai/swiggy-delivery-analysis/cmd"

func main() {
	cmd.Execute()
}
