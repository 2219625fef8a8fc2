// Command wtctmuxctl is a thin demo/inspection CLI over package
// wtctmux, proving the façade against a real tmux server for manual
// testing. It is not the compositor — just a harness.
package main

import "os"

func main() {
	os.Exit(Execute())
}
