// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentweb-project/agentweb/pkg/indexer"
)

var searchRegistryURL string

var searchCmd = &cobra.Command{
	Use:   "search <capability>",
	Short: "Search the Indexer for identifiers offering a capability",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchRegistryURL, "registry-url", "r", "http://localhost:9000", "Indexer base URL")
}

func runSearch(cmd *cobra.Command, args []string) error {
	client := indexer.NewClient(searchRegistryURL)
	ids, err := client.Search(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if len(ids) == 0 {
		fmt.Println("no agents found")
		return nil
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}

var (
	reportRegistryURL string
	reportSuccess     bool
	reportLatencyMs   float64
)

var reportCmd = &cobra.Command{
	Use:   "report <agent-id>",
	Short: "Report a transaction outcome for an identifier to the Indexer",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVarP(&reportRegistryURL, "registry-url", "r", "http://localhost:9000", "Indexer base URL")
	reportCmd.Flags().BoolVar(&reportSuccess, "success", true, "whether the call succeeded")
	reportCmd.Flags().Float64Var(&reportLatencyMs, "latency-ms", 0, "observed response time in milliseconds")
}

func runReport(cmd *cobra.Command, args []string) error {
	client := indexer.NewClient(reportRegistryURL)
	if err := client.Report(context.Background(), args[0], reportSuccess, reportLatencyMs); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	fmt.Println("reported")
	return nil
}
