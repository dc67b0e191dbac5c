// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/poshfilter/poshfilter/cmd/poshfilter"

func main() {
	cmd.Execute()
}
