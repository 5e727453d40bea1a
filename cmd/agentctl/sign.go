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
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentweb-project/agentweb/pkg/identity"
	"github.com/agentweb-project/agentweb/pkg/signature"
)

var signKeyFile string

var signCmd = &cobra.Command{
	Use:   "sign <message>",
	Short: "Sign a message with the local identity key and print the base64 signature",
	Args:  cobra.ExactArgs(1),
	RunE:  runSign,
}

func init() {
	rootCmd.AddCommand(signCmd)
	signCmd.Flags().StringVarP(&signKeyFile, "key-file", "k", ".agentweb/identity.pem", "path to the RSA private key")
}

func runSign(cmd *cobra.Command, args []string) error {
	kp, err := identity.LoadOrCreate(signKeyFile)
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}

	sig, err := signature.NewSigner(kp).Sign([]byte(args[0]))
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}

	fmt.Println(base64.StdEncoding.EncodeToString(sig))
	return nil
}

var (
	verifyKeyFile   string
	verifySignature string
)

var verifyCmd = &cobra.Command{
	Use:   "verify <message>",
	Short: "Verify a base64 signature over a message against the local identity key",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().StringVarP(&verifyKeyFile, "key-file", "k", ".agentweb/identity.pem", "path to the RSA private key")
	verifyCmd.Flags().StringVarP(&verifySignature, "signature", "s", "", "base64-encoded signature to verify")
	_ = verifyCmd.MarkFlagRequired("signature")
}

func runVerify(cmd *cobra.Command, args []string) error {
	kp, err := identity.LoadOrCreate(verifyKeyFile)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}

	sig, err := base64.StdEncoding.DecodeString(verifySignature)
	if err != nil {
		return fmt.Errorf("verify: decode signature: %w", err)
	}

	ok := signature.NewVerifier(kp.PublicKey()).Verify([]byte(args[0]), sig)
	if ok {
		fmt.Println("valid")
		return nil
	}
	fmt.Println("invalid")
	return fmt.Errorf("verify: signature does not verify")
}
