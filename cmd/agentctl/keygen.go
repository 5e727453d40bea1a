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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentweb-project/agentweb/pkg/identity"
)

var keygenKeyFile string

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate or load an identity key and print its identifier",
	RunE:  runKeygen,
}

func init() {
	rootCmd.AddCommand(keygenCmd)
	keygenCmd.Flags().StringVarP(&keygenKeyFile, "key-file", "k", ".agentweb/identity.pem", "path to the RSA private key")
}

func runKeygen(cmd *cobra.Command, args []string) error {
	kp, err := identity.LoadOrCreate(keygenKeyFile)
	if err != nil {
		return fmt.Errorf("keygen: %w", err)
	}

	id, err := identity.IdentifierOf(kp)
	if err != nil {
		return fmt.Errorf("keygen: derive identifier: %w", err)
	}

	fmt.Printf("key file:   %s\n", keygenKeyFile)
	fmt.Printf("identifier: %s\n", id)
	return nil
}
