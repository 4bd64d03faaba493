// SPDX-License-Identifier: MPL-2.0

package main

import cmd "mssqlops-cli/cmd/mssqlops"

func main() {
	cmd.Execute()
}
