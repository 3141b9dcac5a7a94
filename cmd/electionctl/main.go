// Command electionctl queries the election visualization backend, resolves
// party names and runs the server deployment runbooks.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/debindra/election-2082-visualization-sub001/internal/client"
)

// Version information (populated at build time)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code. API failures have
// already been reported through the notification bus, so they are not
// printed a second time.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := newApp(stdin, stdout, stderr)
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	a.close()
	if err == nil {
		return 0
	}
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		fmt.Fprintf(stderr, "error: %v\n", err)
	}
	return 1
}
