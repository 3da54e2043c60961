package main

import "gitlab.com/kuberbook/settlement_api/cmd"

func main() {
	cmd.Execute()
}
