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

var whoamiKeyFile string

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Print the identifier and public key PEM for a key file",
	RunE:  runWhoami,
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
	whoamiCmd.Flags().StringVarP(&whoamiKeyFile, "key-file", "k", ".agentweb/identity.pem", "path to the RSA private key")
}

func runWhoami(cmd *cobra.Command, args []string) error {
	kp, err := identity.LoadOrCreate(whoamiKeyFile)
	if err != nil {
		return fmt.Errorf("whoami: %w", err)
	}

	id, err := identity.IdentifierOf(kp)
	if err != nil {
		return fmt.Errorf("whoami: derive identifier: %w", err)
	}

	pemText, err := identity.PublicKeyPEM(kp.PublicKey())
	if err != nil {
		return fmt.Errorf("whoami: render public key: %w", err)
	}

	fmt.Printf("identifier: %s\n\n%s", id, pemText)
	return nil
}
