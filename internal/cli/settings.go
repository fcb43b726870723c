package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/twocards/backoffice/internal/model/setting"
	"github.com/twocards/backoffice/internal/service/settings"
)

var settingsReveal bool

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Read or write encrypted integration credentials",
}

var settingsGetCmd = &cobra.Command{
	Use:   "get [key...]",
	Short: "Print stored credentials (masked unless --reveal)",
	Long: `Print stored credentials. With no arguments every allowed key is shown.

Examples:
  backoffice settings get
  backoffice settings get ZID_TOKEN --reveal`,
	RunE: runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Encrypt and store one credential",
	Args:  cobra.ExactArgs(2),
	RunE:  runSettingsSet,
}

func init() {
	settingsGetCmd.Flags().BoolVar(&settingsReveal, "reveal", false, "print values in clear text")
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	keys := args
	if len(keys) == 0 {
		keys = setting.AllowedKeys
	}
	for _, k := range keys {
		if !setting.Allowed(k) {
			return fmt.Errorf("key %q is not allowed (allowed: %s)", k, strings.Join(setting.AllowedKeys, ", "))
		}
	}

	values, err := application.Settings.Read(cmd.Context(), keys)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, k := range keys {
		switch v := values[k]; {
		case v == nil:
			fmt.Fprintf(out, "%s\t(unset)\n", k)
		case settingsReveal:
			fmt.Fprintf(out, "%s\t%s\n", k, *v)
		default:
			fmt.Fprintf(out, "%s\t%s\n", k, mask(*v))
		}
	}
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]
	if !setting.Allowed(key) {
		return fmt.Errorf("key %q is not allowed (allowed: %s)", key, strings.Join(setting.AllowedKeys, ", "))
	}

	if _, err := application.Settings.Write(cmd.Context(), []settings.Entry{{Key: key, Value: value}}); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "stored %s\n", key)
	return nil
}

// mask keeps the last four characters of long values.
func mask(v string) string {
	runes := []rune(v)
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-4:])
}
