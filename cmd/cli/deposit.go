package main

import (
	"crypto/rand"
	"fmt"
	"net/url"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/iho/goescrow/internal/adapter/http/dto"
	"github.com/iho/goescrow/internal/adapter/http/middleware"
)

func depositCmd(api *apiClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Resolve deposits held for operator review",
	}

	cmd.AddCommand(reviewCmd(api, "approve"), reviewCmd(api, "reject"))
	return cmd
}

func reviewCmd(api *apiClient, action string) *cobra.Command {
	var (
		operator       string
		reason         string
		idempotencyKey string
	)

	cmd := &cobra.Command{
		Use:   action + " <deposit-id>",
		Short: "Mark a deposit under review as " + action + "d",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if idempotencyKey == "" {
				idempotencyKey = newIdempotencyKey()
			}

			req := dto.ReviewDepositRequest{Operator: operator, Reason: reason}
			if err := req.Validate(action == "reject"); err != nil {
				return err
			}

			var result dto.TonTransactionResponse
			path := "/api/v1/deposits/" + url.PathEscape(args[0]) + "/" + action
			headers := map[string]string{middleware.IdempotencyKeyHeader: idempotencyKey}
			if err := api.send("POST", path, req, headers, &result); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "deposit %s for deal %s is now %s\n", result.ID, result.DealID, result.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&operator, "operator", "", "Operator recorded on the deposit")
	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "Idempotency key (generated when empty)")
	if action == "reject" {
		cmd.Flags().StringVar(&reason, "reason", "", "Why the deposit is rejected")
	}
	return cmd
}

func payoutAddressCmd(api *apiClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payout-address",
		Short: "Manage users' payout addresses",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <user-id> <address>",
		Short: "Set the address a user's payouts and refunds are sent to",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result dto.PayoutAddressResponse
			path := "/api/v1/payout-addresses/" + url.PathEscape(args[0])
			headers := map[string]string{middleware.IdempotencyKeyHeader: newIdempotencyKey()}
			if err := api.send("PUT", path, dto.UpsertPayoutAddressRequest{Address: args[1]}, headers, &result); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "payout address of %s set to %s\n", result.UserID, result.Address)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <user-id>",
		Short: "Show a user's payout address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result dto.PayoutAddressResponse
			if err := api.get("/api/v1/payout-addresses/"+url.PathEscape(args[0]), nil, &result); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	})

	return cmd
}

func newIdempotencyKey() string {
	return "cli-" + ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}
