package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"employee-timesheet/internal/access"
	"employee-timesheet/internal/storage"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage user accounts",
	Long:  `List, create and update user accounts, and import employees from a roster file.`,
}

var listUsersCmd = &cobra.Command{
	Use:   "list",
	Short: "List all users with their roles and status",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		listUsers(ctx)
	},
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func listUsers(ctx context.Context) {
	rbac, err := LoadAccessRBAC(cfg)
	if err != nil {
		fail("Failed to load RBAC policy: %v", err)
	}

	users, err := provider.ListUsers(ctx)
	if err != nil {
		fail("Failed to list users: %v", err)
	}

	if len(users) == 0 {
		fmt.Println("No users found")
		return
	}

	// Print table header
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tNAME\tEMAIL\tADMIN\tACTIVE\tROLES")
	fmt.Fprintln(w, "--\t--------\t----\t-----\t-----\t------\t-----")

	for _, u := range users {
		roles := rbac.GetUserRoles(u.Username)
		rolesStr := "-"
		if len(roles) > 0 {
			rolesStr = strings.Join(roles, ", ")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			u.ID, u.Username, u.DisplayName(), u.Email, yesNo(u.IsAdmin), yesNo(u.IsActive), rolesStr)
	}

	w.Flush()
	fmt.Printf("\nTotal users: %d\n", len(users))
}

// readPassword takes the --password flag, or one line from stdin.
func readPassword(cmd *cobra.Command) string {
	password, _ := cmd.Flags().GetString("password")
	if password != "" {
		return password
	}
	fmt.Fprint(os.Stderr, "Password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		fail("Failed to read password: %v", err)
	}
	return strings.TrimRight(line, "\r\n")
}

func lookupUser(ctx context.Context, username string) *storage.User {
	user, err := provider.GetUserByUsername(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		fail("User %q not found", username)
	}
	if err != nil {
		fail("Failed to look up user: %v", err)
	}
	return user
}

var createUserCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "Create a user account",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		emailAddr, _ := cmd.Flags().GetString("email")
		firstName, _ := cmd.Flags().GetString("first-name")
		lastName, _ := cmd.Flags().GetString("last-name")
		admin, _ := cmd.Flags().GetBool("admin")

		if emailAddr != "" {
			if err := access.ValidEmail(emailAddr); err != nil {
				fail("Invalid email %q: %v", emailAddr, err)
			}
		}

		hash, err := access.HashPassword(readPassword(cmd))
		if err != nil {
			fail("Invalid password: %v", err)
		}

		user := &storage.User{
			Username:     strings.TrimSpace(args[0]),
			Email:        emailAddr,
			FirstName:    firstName,
			LastName:     lastName,
			PasswordHash: hash,
			IsAdmin:      admin,
			IsActive:     true,
		}
		if err := provider.CreateUser(ctx, user); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				fail("User %q already exists", user.Username)
			}
			fail("Failed to create user: %v", err)
		}
		fmt.Printf("User '%s' created with ID %d.\n", user.Username, user.ID)
	},
}

var passwdCmd = &cobra.Command{
	Use:   "passwd <username>",
	Short: "Set the password of a user",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		user := lookupUser(ctx, args[0])

		hash, err := access.HashPassword(readPassword(cmd))
		if err != nil {
			fail("Invalid password: %v", err)
		}
		if err := provider.SetPassword(ctx, user.ID, hash); err != nil {
			fail("Failed to set password: %v", err)
		}
		fmt.Printf("Password of '%s' updated.\n", user.Username)
	},
}

// flagCommand builds a command toggling one boolean attribute of a user.
func flagCommand(use, short, done string, value bool, set func(ctx context.Context, id int64, v bool) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <username>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			user := lookupUser(ctx, args[0])
			if err := set(ctx, user.ID, value); err != nil {
				fail("Failed to update user: %v", err)
			}
			fmt.Printf("User '%s' %s.\n", user.Username, done)
		},
	}
}

var importUsersCmd = &cobra.Command{
	Use:   "import <roster.csv>",
	Short: "Create employee accounts from a roster file",
	Long: `Import employees from a CSV or tab separated roster. The header must have an
EMAIL (or SÄHKÖPOSTI) column; USERNAME, FIRST NAME and LAST NAME are optional.
Existing usernames are skipped. Imported accounts need a password before they can sign in.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		f, err := os.Open(args[0])
		if err != nil {
			fail("Failed to open roster: %v", err)
		}
		defer f.Close()

		entries, err := access.ParseRoster(f)
		if err != nil {
			fail("Failed to parse roster: %v", err)
		}

		result, err := access.ImportRoster(ctx, provider, entries)
		if err != nil {
			fail("Import failed after %d users: %v", result.Created, err)
		}
		fmt.Printf("Imported %d users, %d already existed.\n", result.Created, result.Existing)
	},
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(listUsersCmd)

	createUserCmd.Flags().String("email", "", "email address")
	createUserCmd.Flags().String("first-name", "", "first name")
	createUserCmd.Flags().String("last-name", "", "last name")
	createUserCmd.Flags().Bool("admin", false, "grant administrator rights")
	createUserCmd.Flags().String("password", "", "password (read from stdin when empty)")
	usersCmd.AddCommand(createUserCmd)

	passwdCmd.Flags().String("password", "", "new password (read from stdin when empty)")
	usersCmd.AddCommand(passwdCmd)

	usersCmd.AddCommand(
		flagCommand("promote", "Grant administrator rights", "is now an administrator", true,
			func(ctx context.Context, id int64, v bool) error { return provider.SetAdmin(ctx, id, v) }),
		flagCommand("demote", "Revoke administrator rights", "is no longer an administrator", false,
			func(ctx context.Context, id int64, v bool) error { return provider.SetAdmin(ctx, id, v) }),
		flagCommand("activate", "Allow a user to sign in", "activated", true,
			func(ctx context.Context, id int64, v bool) error { return provider.SetActive(ctx, id, v) }),
		flagCommand("deactivate", "Prevent a user from signing in", "deactivated", false,
			func(ctx context.Context, id int64, v bool) error { return provider.SetActive(ctx, id, v) }),
	)

	usersCmd.AddCommand(importUsersCmd)
}
