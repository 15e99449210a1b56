package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zlovtnik/iead-sub002/auth"
	"github.com/zlovtnik/iead-sub002/identity"
)

var (
	userDataDir  string
	userRole     string
	userLinkedID string
	userPassword string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts in the identity directory",
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, err := auth.ParseRole(userRole)
		if err != nil {
			return err
		}
		if userPassword == "" {
			return fmt.Errorf("--password is required")
		}

		users, err := identity.NewBoltDirectoryFromFile(userDataDir+"/identity.db", nil)
		if err != nil {
			return fmt.Errorf("failed to open identity directory: %w", err)
		}
		defer users.Close()

		user, err := users.Create(cmd.Context(), identity.NewUser{
			Username:      args[0],
			Password:      userPassword,
			Role:          role,
			LinkedOwnerID: userLinkedID,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Created %s account %s (id: %s)\n", role, args[0], user.ID)
		return nil
	},
}

var userDeactivateCmd = &cobra.Command{
	Use:   "deactivate <userID>",
	Short: "Deactivate an account; its sessions stop resolving",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		users, err := identity.NewBoltDirectoryFromFile(userDataDir+"/identity.db", nil)
		if err != nil {
			return fmt.Errorf("failed to open identity directory: %w", err)
		}
		defer users.Close()

		if err := users.Deactivate(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deactivated account %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userDeactivateCmd)

	userCmd.PersistentFlags().StringVar(&userDataDir, "data-dir", "./data", "Directory for persistent data")
	userAddCmd.Flags().StringVar(&userRole, "role", string(auth.RoleMember), "Account role (member, pastor, admin)")
	userAddCmd.Flags().StringVar(&userPassword, "password", "", "Account password")
	userAddCmd.Flags().StringVar(&userLinkedID, "linked-owner", "", "Linked member record ID for self-scoped access")
}
