package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "authd",
	Short: "authd is the authorization core for the church administration services",
	Long: `Bearer-token session authentication, role-hierarchy authorization and
login rate limiting for the IEAD administration services.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
