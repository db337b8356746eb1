package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/iho/goescrow/internal/adapter/http/dto"
)

func ledgerCmd(api *apiClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	cmd.AddCommand(consistencyCmd(api), balanceCmd(api), entriesCmd(api))
	return cmd
}

func consistencyCmd(api *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "consistency",
		Short: "Check ledger consistency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result dto.ConsistencyResponse
			err := api.get("/api/v1/ledger/consistency", nil, &result)

			var apiErr *apiError
			if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
				fmt.Fprintf(cmd.OutOrStdout(), "Consistency check FAILED\nResponse: %s\n", apiErr.Body)
				return errors.New("ledger is inconsistent")
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Consistency check PASSED\n")
			fmt.Fprintf(out, "Consistent: %v\n", result.Consistent)
			fmt.Fprintf(out, "Status: %s\n", result.Status)
			return nil
		},
	}
}

func balanceCmd(api *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <account-key>",
		Short: "Show an account balance, e.g. ESCROW:<deal-id>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result dto.BalanceResponse
			if err := api.get("/api/v1/accounts/"+url.PathEscape(args[0])+"/balance", nil, &result); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s TON\t(%d nanoton)\n", result.Account, result.BalanceTON, result.BalanceNano)
			return nil
		},
	}
}

func entriesCmd(api *apiClient) *cobra.Command {
	var (
		cursor string
		limit  int
		deal   bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "entries <account-key | deal-id>",
		Short: "List entries of an account, or of a deal with --deal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			if cursor != "" {
				query.Set("cursor", cursor)
			}
			if limit > 0 {
				query.Set("limit", strconv.Itoa(limit))
			}

			path := "/api/v1/accounts/" + url.PathEscape(args[0]) + "/entries"
			if deal {
				path = "/api/v1/deals/" + url.PathEscape(args[0]) + "/entries"
			}

			var page dto.EntryPageResponse
			if err := api.get(path, query, &page); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, page)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CREATED\tACCOUNT\tTYPE\tDELTA\tBALANCE\tKEY")
			for _, e := range page.Entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
					e.CreatedAt.Format("2006-01-02 15:04:05"),
					e.Account,
					e.EntryType,
					e.DeltaNano,
					e.BalanceAfter,
					truncate(e.IdempotencyKey, 32),
				)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if page.NextCursor != "" {
				fmt.Fprintf(out, "\nnext cursor: %s\n", page.NextCursor)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cursor, "cursor", "", "Cursor returned by the previous page")
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size (server default when zero)")
	cmd.Flags().BoolVar(&deal, "deal", false, "Treat the argument as a deal ID")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw JSON page")
	return cmd
}
