package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stepwise-app/stepwise/pkg/models"
)

var profileFlags struct {
	name     string
	grade    string
	subjects []string
	level    string
	contexts []string
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "View or change the context the AI plans with",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProfileShow(cmd, args)
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show your profile",
	Args:  cobra.NoArgs,
	RunE:  runProfileShow,
}

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update your profile",
	Long: `Update your profile. Only the flags you pass are changed.

Examples:
  stepwise profile set --name Sam --level low
  stepwise profile set --context university,work --subjects math,physics`,
	Args: cobra.NoArgs,
	RunE: runProfileSet,
}

func init() {
	f := profileSetCmd.Flags()
	f.StringVar(&profileFlags.name, "name", "", "Display name")
	f.StringVar(&profileFlags.grade, "grade", "", "School grade or year")
	f.StringSliceVar(&profileFlags.subjects, "subjects", nil, "Subjects you study")
	f.StringVar(&profileFlags.level, "level", "", "Your usual pace: low, medium or high")
	f.StringSliceVar(&profileFlags.contexts, "context", nil, "What you plan for: student, university, work, personal")

	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileSetCmd)
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.db.GetProfile(cmd.Context(), a.userID())
	if err != nil {
		return err
	}
	printProfile(cmd, p)
	return nil
}

func runProfileSet(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	p, err := a.db.GetProfile(ctx, a.userID())
	if err != nil {
		return err
	}
	if p == nil {
		p = &models.Profile{UserID: a.userID()}
	}
	if err := applyProfileFlags(cmd, p); err != nil {
		return err
	}

	if err := a.db.SaveProfile(ctx, p); err != nil {
		return err
	}
	printStatus(cmd, "✓", "Profile saved", color.FgGreen)
	printProfile(cmd, p)
	return nil
}

// applyProfileFlags copies only the flags the user passed onto p.
func applyProfileFlags(cmd *cobra.Command, p *models.Profile) error {
	flags := cmd.Flags()
	if flags.Changed("name") {
		p.DisplayName = strings.TrimSpace(profileFlags.name)
	}
	if flags.Changed("grade") {
		p.Grade = strings.TrimSpace(profileFlags.grade)
	}
	if flags.Changed("subjects") {
		p.Subjects = trimAll(profileFlags.subjects)
	}
	if flags.Changed("level") {
		level := models.SelfLevel(strings.ToLower(strings.TrimSpace(profileFlags.level)))
		if level != "" && !level.Valid() {
			return fmt.Errorf("level %q: %w", profileFlags.level, models.ErrValidation)
		}
		p.SelfLevel = level
	}
	if flags.Changed("context") {
		p.UserContext = p.UserContext[:0]
		for _, c := range trimAll(profileFlags.contexts) {
			uc := models.UserContext(strings.ToLower(c))
			if !uc.Valid() {
				return fmt.Errorf("context %q: %w", c, models.ErrValidation)
			}
			p.UserContext = append(p.UserContext, uc)
		}
	}
	return nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func printProfile(cmd *cobra.Command, p *models.Profile) {
	w := cmd.OutOrStdout()
	if p == nil {
		fmt.Fprintln(w, "No profile yet. Run 'stepwise profile set --help' to add one.")
		return
	}

	contexts := make([]string, len(p.UserContext))
	for i, c := range p.UserContext {
		contexts[i] = string(c)
	}
	fmt.Fprintf(w, "name:     %s\n", orUnset(p.DisplayName))
	fmt.Fprintf(w, "grade:    %s\n", orUnset(p.Grade))
	fmt.Fprintf(w, "subjects: %s\n", orUnset(strings.Join(p.Subjects, ", ")))
	fmt.Fprintf(w, "level:    %s\n", orUnset(string(p.SelfLevel)))
	fmt.Fprintf(w, "context:  %s\n", orUnset(strings.Join(contexts, ", ")))
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
