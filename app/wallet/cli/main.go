// This program is a localchain wallet that notarizes balance changes with
// an argon notary.
package main

import "github.com/argonprotocol/argon/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
