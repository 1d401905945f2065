package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// configKeys lists the settable keys and whether each holds an integer.
var configKeys = map[string]bool{
	"patch.chrom":       false,
	"patch.description": false,
	"patch.wrap":        true,
	"patch.workers":     true,
	"window.size":       true,
	"ledger.path":       false,
	"log.level":         false,
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage vibe-patch configuration",
		Long: `Show, get, or set configuration values. Config is stored in ~/` + configName + `.

Keys: ` + knownKeys() + `

Every key can also be set through the environment, e.g. VIBE_PATCH_PATCH_WRAP=60.`,
		Example: `  vibe-patch config                                   # show all config
  vibe-patch config set patch.description hg19_patched   # header description
  vibe-patch config set ledger.path ~/.vibe-patch/ledger.duckdb
  vibe-patch config get patch.wrap                       # get a value`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := configKeys[args[0]]; !ok {
				return newUsageError(cmd, "unknown config key %q (known: %s)", args[0], knownKeys())
			}
			return runConfigSet(cmd.OutOrStdout(), args[0], args[1])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := configKeys[args[0]]; !ok {
				return newUsageError(cmd, "unknown config key %q (known: %s)", args[0], knownKeys())
			}
			return runConfigGet(cmd.OutOrStdout(), args[0])
		},
	})

	return cmd
}

func knownKeys() string {
	keys := make([]string, 0, len(configKeys))
	for k := range configKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}

func runConfigShow(w io.Writer) error {
	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Fprintf(w, "# %s\n", used)
	}
	out, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Fprint(w, string(out))
	return nil
}

func runConfigSet(w io.Writer, key, value string) error {
	if configKeys[key] {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s must be an integer, got %q", key, value)
		}
		viper.Set(key, n)
	} else {
		viper.Set(key, value)
	}

	cfgFile := viper.ConfigFileUsed()
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfgFile = filepath.Join(home, configName)
	}

	if err := viper.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(w, "Set %s = %s in %s\n", key, value, cfgFile)
	return nil
}

func runConfigGet(w io.Writer, key string) error {
	if !viper.IsSet(key) {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Fprintln(w, viper.Get(key))
	return nil
}
