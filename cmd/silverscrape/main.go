package main

import "github.com/rahulmohamw/SSM-Silver-scraper-V0/cli"

func main() {
	cli.Execute()
}
