// Command linkcheck checks a seed file of discovered hyperlinks for
// availability and writes output.txt/output.json to --output-dir.
package main

import "github.com/rohmanhakim/linkcheck/internal/cli"

func main() {
	cli.Execute()
}
