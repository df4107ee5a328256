package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"lms/cmd/identity"
)

// NewHashPasswordCmd creates the hash-password subcommand used to seed accounts.
func NewHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Read a password from stdin and print its Argon2id hash",
		Long: `Reads one line from stdin and prints the encoded Argon2id hash using the
LMS_ARGON2_* and LMS_PASSWORD_* settings, for inserting into lms.users.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			plain, err := readPassword(cmd.InOrStdin())
			if err != nil {
				return err
			}

			h, err := identity.NewHasherFromEnv()
			if err != nil {
				return err
			}
			encoded, err := h.Hash(plain)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), encoded)
			return err
		},
	}
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("empty password on stdin")
	}
	return line, nil
}
