package main

import (
	"fmt"
	"gw-wallet-ledger/internal/models"
	"gw-wallet-ledger/internal/nbp_client"
	"gw-wallet-ledger/internal/service"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	url         string
	timeout     time.Duration
	maxAttempts int
	backoff     time.Duration
	reference   string
	debug       bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:          "ratesctl",
		Short:        "Inspect the exchange rates used by the wallet ledger",
		Version:      "v1.0.0",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.url, "url", nbp_client.DefaultURL, "Rate table URL")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Per-request HTTP timeout")
	rootCmd.PersistentFlags().IntVar(&opts.maxAttempts, "attempts", 3, "Attempts on 502/503/504")
	rootCmd.PersistentFlags().DurationVar(&opts.backoff, "backoff", time.Second, "Initial retry backoff")
	rootCmd.PersistentFlags().StringVar(&opts.reference, "reference", "PLN", "Reference currency label")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Debug logging to stderr")

	rootCmd.AddCommand(fetchCmd(opts), convertCmd(opts))

	return rootCmd
}

func (o *rootOptions) rateCache(cmd *cobra.Command) *service.RateCache {
	level := slog.LevelError
	if o.debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	client := nbp_client.NewClient(nbp_client.Config{
		URL:          o.url,
		Timeout:      o.timeout,
		MaxAttempts:  o.maxAttempts,
		RetryBackoff: o.backoff,
	}, nil, log)

	return service.NewRateCache(client, service.DefaultRefreshInterval, 0, nil, log)
}

func fetchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Print the current rate table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cache := opts.rateCache(cmd)

			rates := cache.GetRates(cmd.Context())
			if cache.FetchedAt().IsZero() {
				return fmt.Errorf("rate table unavailable at %s", opts.url)
			}

			printRates(cmd.OutOrStdout(), rates, models.NormalizeCurrency(opts.reference))
			return nil
		},
	}
}

func convertCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <amount> <currency>",
		Short: "Convert an amount into the reference currency",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[0])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[0], err)
			}
			currency := models.NormalizeCurrency(args[1])

			rate, ok := opts.rateCache(cmd).GetRates(cmd.Context())[currency]
			if !ok {
				return fmt.Errorf("currency %s is not in the rate table", currency)
			}

			converted := amount.Mul(decimal.NewFromFloat(rate)).Round(2)
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s %s\n",
				amount.String(), currency, converted.StringFixed(2), models.NormalizeCurrency(opts.reference))
			return nil
		},
	}
}

func printRates(w io.Writer, rates service.Rates, reference string) {
	codes := make([]string, 0, len(rates))
	for code := range rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		fmt.Fprintf(w, "%s\t%s %s\n", code, decimal.NewFromFloat(rates[code]).StringFixed(4), reference)
	}
}
