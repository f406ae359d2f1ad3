package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/cppla/yatube/forms"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	form := forms.NewSignupForm()
	create := &cobra.Command{
		Use:   "create <username>",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form.Username = args[0]
			form.Password2 = form.Password1
			if !form.Validate() {
				return formError(form.Errors)
			}
			hash, err := utils.HashPassword(form.Password1)
			if err != nil {
				return err
			}
			db, closeFn, err := openDB()
			if err != nil {
				return err
			}
			defer closeFn()

			user := models.User{PasswordHash: hash}
			form.Apply(&user)
			if err := db.Create(&user).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return fmt.Errorf("user %q already exists", user.Username)
				}
				return err
			}
			cmd.Printf("created user %s (id %d)\n", user.Username, user.ID)
			return nil
		},
	}
	create.Flags().StringVar(&form.Password1, "password", "", "account password (min 8 characters)")
	create.Flags().StringVar(&form.Email, "email", "", "email address")
	create.Flags().StringVar(&form.FirstName, "first-name", "", "first name")
	create.Flags().StringVar(&form.LastName, "last-name", "", "last name")
	_ = create.MarkFlagRequired("password")

	del := &cobra.Command{
		Use:   "delete <username>",
		Short: "Delete a user with their posts, comments and subscriptions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeFn, err := openDB()
			if err != nil {
				return err
			}
			defer closeFn()

			var user models.User
			if err := db.Where("username = ?", args[0]).First(&user).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("user %q not found", args[0])
				}
				return err
			}
			if err := db.Delete(&user).Error; err != nil {
				return err
			}
			cmd.Printf("deleted user %s\n", user.Username)
			return nil
		},
	}

	cmd.AddCommand(create, del)
	return cmd
}
