package util

import (
	"os"
	"strings"
)

const EnvironmentPrefix = "MARGDARSHAK_"

func GetEnvironmentVariables() map[string]string {
	environmentVariables := map[string]string{}

	for _, variable := range os.Environ() {
		pair := strings.SplitN(variable, "=", 2)
		if len(pair) != 2 {
			continue
		}

		environmentVariables[pair[0]] = pair[1]
	}

	return environmentVariables
}

// EnvironmentKey returns the prefixed environment variable name for a setting
func EnvironmentKey(name string) string {
	return EnvironmentPrefix + name
}
