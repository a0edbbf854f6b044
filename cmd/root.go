package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagIgnoreConfig bool
	flagDebug        bool

	// headers/auth, shared by every command that talks to the site
	flagCookie           string
	flagCookieFile       string
	flagUserAgent        string
	flagCloudflareBypass bool
)

var rootCmd = &cobra.Command{
	Use:           "mangapdf",
	Short:         "Search manga and convert chapter ranges into a single PDF",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&flagDebug, "debug", false, "enable debug logging")
	pf.BoolVar(&flagIgnoreConfig, "ignore-config", false, "ignore config and use only CLI flags")

	pf.StringVar(&flagCookie, "cookie", "", "cookie string, e.g. \"key=value; other=123\"")
	pf.StringVar(&flagCookieFile, "cookie-file", "", "path to a text file with cookies (one header line)")
	pf.StringVar(&flagUserAgent, "user-agent", "", "override User-Agent")
	pf.BoolVar(&flagCloudflareBypass, "cloudflare-bypass", false, "send requests through the Cloudflare bypass transport")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
