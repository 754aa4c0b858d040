// Command interview runs interview sessions; see "interview --help".
package main

import "github.com/berth-dev/interview/internal/cli"

func main() {
	cli.Execute()
}
