package main

import (
	"context"
	"fmt"

	"fixmate_backend/internal/clients"
	"fixmate_backend/platform/validator"

	"github.com/spf13/cobra"
)

var revokeAdmin bool

var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "Manage client accounts",
}

var clientsAdminCmd = &cobra.Command{
	Use:   "admin <phone>",
	Short: "Grant (or with --revoke, remove) admin access for a client",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
		svc := clients.NewModule(s.pool, validator.New(), s.log).Service()
		client, err := svc.GetByPhone(ctx, args[0])
		if err != nil {
			return err
		}
		if err := svc.SetAdmin(ctx, client.ID, !revokeAdmin); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "client %d admin=%t\n", client.ID, !revokeAdmin)
		return nil
	}),
}

var clientsDeleteCmd = &cobra.Command{
	Use:   "delete <phone>",
	Short: "Delete a client and their jobs",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
		svc := clients.NewModule(s.pool, validator.New(), s.log).Service()
		client, err := svc.GetByPhone(ctx, args[0])
		if err != nil {
			return err
		}
		if err := svc.Delete(ctx, client.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "client %d deleted\n", client.ID)
		return nil
	}),
}

func init() {
	clientsAdminCmd.Flags().BoolVar(&revokeAdmin, "revoke", false, "remove admin access instead of granting it")
	clientsCmd.AddCommand(clientsAdminCmd, clientsDeleteCmd)
}
