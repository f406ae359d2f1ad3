package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/cppla/yatube/forms"
	"github.com/cppla/yatube/models"
)

func newGroupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage post groups",
	}

	var description string
	create := &cobra.Command{
		Use:   "create <title> <slug>",
		Short: "Create a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			form := forms.NewGroupForm()
			form.Title, form.Slug, form.Description = args[0], args[1], description
			if !form.Validate() {
				return formError(form.Errors)
			}
			db, closeFn, err := openDB()
			if err != nil {
				return err
			}
			defer closeFn()

			var group models.Group
			form.Apply(&group)
			if err := db.Create(&group).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return fmt.Errorf("group title or slug already exists")
				}
				return err
			}
			cmd.Printf("created group %q (%s)\n", group.Title, group.Slug)
			return nil
		},
	}
	create.Flags().StringVarP(&description, "description", "d", "", "group description")

	del := &cobra.Command{
		Use:   "delete <slug>",
		Short: "Delete a group; its posts stay without a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeFn, err := openDB()
			if err != nil {
				return err
			}
			defer closeFn()

			var group models.Group
			if err := db.Where("slug = ?", args[0]).First(&group).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("group %q not found", args[0])
				}
				return err
			}
			if err := db.Delete(&group).Error; err != nil {
				return err
			}
			cmd.Printf("deleted group %s\n", group.Slug)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeFn, err := openDB()
			if err != nil {
				return err
			}
			defer closeFn()

			var groups []models.Group
			if err := db.Order("title").Find(&groups).Error; err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SLUG\tTITLE")
			for _, g := range groups {
				fmt.Fprintf(w, "%s\t%s\n", g.Slug, g.Title)
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(create, del, list)
	return cmd
}

func formError(errs forms.Errors) error {
	parts := make([]string, 0, len(errs))
	for field, msgs := range errs {
		parts = append(parts, field+": "+strings.Join(msgs, " "))
	}
	return fmt.Errorf("invalid input: %s", strings.Join(parts, "; "))
}
