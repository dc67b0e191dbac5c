// SPDX-License-Identifier: MPL-2.0

package runtime

import "strings"

// EnvPrefix is the prefix of poshfilter's own configuration variables.
const EnvPrefix = "POSHFILTER_"

// FilterEnv removes poshfilter configuration variables from environ so they
// do not leak into the interpreter, where a pipeline that calls poshfilter
// again would pick them up.
func FilterEnv(environ []string) []string {
	result := make([]string, 0, len(environ))
	for _, e := range environ {
		name, _, ok := strings.Cut(e, "=")
		if !ok {
			// Malformed entry, keep it
			result = append(result, e)
			continue
		}
		if strings.HasPrefix(strings.ToUpper(name), EnvPrefix) {
			continue
		}
		result = append(result, e)
	}
	return result
}
