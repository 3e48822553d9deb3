package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"emailgenius/internal/campaign"
)

var profileSlugOverride string

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage parent sender profiles",
}

var profileLoadCmd = &cobra.Command{
	Use:   "load [profile.yaml]",
	Short: "Validate a profile YAML and store it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := campaign.LoadParentProfileFile(args[0], profileSlugOverride)
		if err != nil {
			return err
		}

		localStore, err := openStore()
		if err != nil {
			return err
		}
		defer localStore.Close()

		if err := localStore.UpsertParentProfile(*profile); err != nil {
			return err
		}
		fmt.Printf("Stored parent profile %q (%s)\n", profile.Slug, profile.CompanyName)
		return nil
	},
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored parent profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		localStore, err := openStore()
		if err != nil {
			return err
		}
		defer localStore.Close()

		infos, err := localStore.ListParentProfiles()
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Println("No parent profiles stored")
			return nil
		}
		for _, info := range infos {
			marker := " "
			if info.IsActive {
				marker = "*"
			}
			fmt.Printf("%s %-24s %s\n", marker, info.Slug, info.CompanyName)
		}
		return nil
	},
}

var profileActivateCmd = &cobra.Command{
	Use:   "activate [slug]",
	Short: "Mark a stored profile as the active one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		localStore, err := openStore()
		if err != nil {
			return err
		}
		defer localStore.Close()

		if err := localStore.SetActiveParentProfile(args[0]); err != nil {
			return err
		}
		fmt.Printf("Activated parent profile %q\n", args[0])
		return nil
	},
}

func init() {
	profileLoadCmd.Flags().StringVar(&profileSlugOverride, "slug", "", "Override the profile slug")

	profileCmd.AddCommand(profileLoadCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileActivateCmd)
}
