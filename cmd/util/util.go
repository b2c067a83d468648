// Package util provides helpers shared by the employeectl commands.
package util

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// MustBindPFlag attempts to bind a specific key to a pflag (as used by cobra) and panics
// if the binding fails with a non-nil error.
func MustBindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic("failed to bind pflag: " + err.Error())
	}
}

// MustBindEnv binds a key to the given environment variables and panics on failure.
func MustBindEnv(input ...string) {
	if err := viper.BindEnv(input...); err != nil {
		panic("failed to bind env key: " + err.Error())
	}
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RequireValues rejects an empty --set map and blank attribute names.
func RequireValues(values map[string]string) error {
	if len(values) == 0 {
		return fmt.Errorf("at least one --set name=value is required")
	}
	for k := range values {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("attribute name must not be empty")
		}
	}
	return nil
}
