package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ledgerlens/ledgerlens/internal/cli"
	"github.com/ledgerlens/ledgerlens/internal/config"
)

func profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or update the active user profile",
	}

	cmd.AddCommand(showProfileCmd())
	cmd.AddCommand(setProfileCmd())
	return cmd
}

func showProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the active profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			settings, err := config.Load()
			if err != nil {
				return err
			}
			store, err := initStorage(ctx, settings)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			profile, err := loadProfile(ctx, store, settings)
			if err != nil {
				return err
			}

			fmt.Println(cli.TitleStyle.Render("Profile " + profile.UserID))
			fmt.Printf("Home currency:        %s\n", profile.HomeCurrency)
			if profile.Locale != "" {
				fmt.Printf("Locale:               %s\n", profile.Locale)
			}
			fmt.Printf("Confidence threshold: %.2f\n", profile.ConfidenceThreshold)
			return nil
		},
	}
}

func setProfileCmd() *cobra.Command {
	var (
		homeCurrency string
		locale       string
		threshold    float64
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update profile settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			settings, err := config.Load()
			if err != nil {
				return err
			}
			store, err := initStorage(ctx, settings)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			profile, err := loadProfile(ctx, store, settings)
			if err != nil {
				return err
			}

			if homeCurrency != "" {
				profile.HomeCurrency = homeCurrency
			}
			if locale != "" {
				profile.Locale = locale
			}
			if cmd.Flags().Changed("confidence-threshold") {
				profile.ConfidenceThreshold = threshold
			}

			if err := store.SaveProfile(ctx, &profile); err != nil {
				return err
			}

			fmt.Println(cli.SuccessStyle.Render("✓ Profile updated"))
			return nil
		},
	}

	cmd.Flags().StringVar(&homeCurrency, "home-currency", "", "default currency for ambiguous amounts (ISO 4217)")
	cmd.Flags().StringVar(&locale, "locale", "", "locale hint passed to extraction (e.g. de-DE)")
	cmd.Flags().Float64Var(&threshold, "confidence-threshold", 0.6, "minimum confidence for auto-acceptance (0-1)")

	return cmd
}
